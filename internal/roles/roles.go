// Package roles holds the static capability table for participant and staff
// roles. Auditors consult the table instead of branching on role strings.
package roles

import (
	"fmt"

	dErrors "olympreg/pkg/domain-errors"
)

// Room type names used by the capability table and the person auditor.
const (
	RoomShared = "Shared room"
	RoomSingle = "Single room"
)

// Capability describes what a role may do and which fields apply to it.
type Capability struct {
	Name string
	// Staff roles belong to the staff pseudo-country and never to a
	// normal country.
	Staff bool
	// CanGuide permits a guide_for assignment.
	CanGuide bool
	// SecondaryOK permits the role as one of a person's other_roles.
	SecondaryOK bool
	// GenderRestricted subjects the role to the event's allowed-gender set.
	GenderRestricted bool
	// Contestant roles carry scores and the age bound.
	Contestant bool
	// Observer roles are not unique per country.
	Observer bool
	// RoomTypes the role may book; DefaultRoomType applies when no explicit
	// choice is made.
	RoomTypes       []string
	DefaultRoomType string
	// BadgeColor is the badge background, six hex digits.
	BadgeColor string
}

func contestant(n int) Capability {
	return Capability{
		Name:             fmt.Sprintf("Contestant %d", n),
		GenderRestricted: true,
		Contestant:       true,
		RoomTypes:        []string{RoomShared},
		DefaultRoomType:  RoomShared,
		BadgeColor:       "ffcc00",
	}
}

func observer(with string) Capability {
	return Capability{
		Name:            "Observer with " + with,
		Observer:        true,
		SecondaryOK:     true,
		RoomTypes:       []string{RoomShared, RoomSingle},
		DefaultRoomType: RoomShared,
		BadgeColor:      "dddddd",
	}
}

func staff(name string, canGuide bool, color string) Capability {
	return Capability{
		Name:            name,
		Staff:           true,
		CanGuide:        canGuide,
		SecondaryOK:     true,
		RoomTypes:       []string{RoomShared, RoomSingle},
		DefaultRoomType: RoomSingle,
		BadgeColor:      color,
	}
}

var table = map[string]Capability{}

func register(c Capability) {
	table[c.Name] = c
}

func init() {
	register(Capability{
		Name:            "Leader",
		RoomTypes:       []string{RoomShared, RoomSingle},
		DefaultRoomType: RoomSingle,
		BadgeColor:      "cc0000",
	})
	register(Capability{
		Name:            "Deputy Leader",
		RoomTypes:       []string{RoomShared, RoomSingle},
		DefaultRoomType: RoomShared,
		BadgeColor:      "cc6600",
	})
	for i := 1; i <= 6; i++ {
		register(contestant(i))
	}
	register(observer("Leader"))
	register(observer("Deputy"))
	register(observer("Contestants"))
	register(staff("Guide", true, "00cc00"))
	register(staff("Chief Guide", false, "00cc66"))
	register(staff("Coordinator", false, "6666ff"))
	register(staff("Invigilator", false, "66cccc"))
	register(staff("Jury Chair", false, "9900cc"))
	register(staff("Chief Invigilator", false, "66cccc"))
	register(staff("Crew", false, "999999"))
}

// Lookup returns the capability entry for an exact role name.
func Lookup(name string) (Capability, error) {
	c, ok := table[name]
	if !ok {
		return Capability{}, dErrors.Newf(dErrors.CodeReferenceInvalid,
			"role %s not recognized", name)
	}
	return c, nil
}

// AllowsRoom reports whether the role permits the given room type, taking an
// optional per-role configuration override of the permitted set.
func (c Capability) AllowsRoom(roomType string, override map[string][]string) bool {
	permitted := c.RoomTypes
	if override != nil {
		if o, ok := override[c.Name]; ok {
			permitted = o
		}
	}
	for _, rt := range permitted {
		if rt == roomType {
			return true
		}
	}
	return false
}
