package files

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olympreg/internal/auth"
	dErrors "olympreg/pkg/domain-errors"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), []byte("stub")...)
	jpegBytes = append([]byte("\xff\xd8\xff"), []byte("stub")...)
	pdfBytes  = []byte("%PDF-1.4 stub")
)

func TestNewSniffsAndChecksExtension(t *testing.T) {
	f, err := New(KindFlag, Upload{Filename: "flag.PNG", Content: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f.Format)

	// Declared extension must match sniffed content.
	_, err = New(KindFlag, Upload{Filename: "flag.jpg", Content: pngBytes})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeFormatInvalid))

	// Flags must be PNG.
	_, err = New(KindFlag, Upload{Filename: "flag.jpg", Content: jpegBytes})
	require.Error(t, err)

	// Photos may be JPEG or PNG.
	_, err = New(KindPhoto, Upload{Filename: "me.jpeg", Content: jpegBytes})
	require.NoError(t, err)
	_, err = New(KindPhoto, Upload{Filename: "me.png", Content: pngBytes})
	require.NoError(t, err)
	_, err = New(KindPhoto, Upload{Filename: "me.pdf", Content: pdfBytes})
	require.Error(t, err)

	// Consent forms are PDF only.
	_, err = New(KindConsentForm, Upload{Filename: "form.pdf", Content: pdfBytes})
	require.NoError(t, err)

	// Unrecognized content is rejected outright.
	_, err = New(KindPhoto, Upload{Filename: "me.png", Content: []byte("GIF89a...")})
	require.Error(t, err)
}

func TestResolvePhotoConsentTiers(t *testing.T) {
	photo, err := New(KindPhoto, Upload{Filename: "me.jpg", Content: jpegBytes})
	require.NoError(t, err)

	owner := Owner{CountryID: "c1", PersonID: "p1", ConsentUI: true}

	owner.PhotoConsent = PhotoConsentWebsite
	assert.Equal(t, StatePublic, Resolve(photo, owner))

	owner.PhotoConsent = PhotoConsentBadgeOnly
	assert.Equal(t, StateBadgeOnly, Resolve(photo, owner))

	owner.PhotoConsent = PhotoConsentNone
	assert.Equal(t, StatePrivate, Resolve(photo, owner))

	owner.PhotoConsent = PhotoConsentUnset
	assert.Equal(t, StatePrivate, Resolve(photo, owner))

	// Without the consent UI there is no gating.
	owner.ConsentUI = false
	assert.Equal(t, StatePublic, Resolve(photo, owner))
}

func TestSupersededNeverRevives(t *testing.T) {
	photo, err := New(KindPhoto, Upload{Filename: "me.jpg", Content: jpegBytes})
	require.NoError(t, err)
	photo.Superseded = true

	// Even the most permissive consent leaves a superseded file hidden.
	owner := Owner{CountryID: "c1", PersonID: "p1", ConsentUI: true, PhotoConsent: PhotoConsentWebsite}
	assert.Equal(t, StateSuperseded, Resolve(photo, owner))
	assert.False(t, CanView(StateSuperseded, auth.Actor{Kind: auth.KindDelegate, CountryID: "c1"}, owner))
	assert.True(t, CanView(StateSuperseded, auth.Actor{Kind: auth.KindAdmin}, owner))
}

func TestRetiredOwnerHidesFromPublic(t *testing.T) {
	flag, err := New(KindFlag, Upload{Filename: "flag.png", Content: pngBytes})
	require.NoError(t, err)

	owner := Owner{CountryID: "c1"}
	assert.Equal(t, StatePublic, Resolve(flag, owner))

	owner.CountryRetired = true
	state := Resolve(flag, owner)
	assert.Equal(t, StatePrivate, state)
	assert.False(t, CanView(state, auth.Anonymous, owner))
	assert.True(t, CanView(state, auth.Actor{Kind: auth.KindDelegate, CountryID: "c1"}, owner))
	assert.True(t, CanView(state, auth.Actor{Kind: auth.KindAdmin}, owner))
}

func TestCanViewScoping(t *testing.T) {
	owner := Owner{CountryID: "c1", PersonID: "p1"}

	delegate := auth.Actor{Kind: auth.KindDelegate, CountryID: "c1"}
	otherDelegate := auth.Actor{Kind: auth.KindDelegate, CountryID: "c2"}
	self := auth.Actor{Kind: auth.KindSelfRegistration, CountryID: "c1", PersonID: "p1"}
	otherSelf := auth.Actor{Kind: auth.KindSelfRegistration, CountryID: "c1", PersonID: "p2"}

	assert.True(t, CanView(StateBadgeOnly, delegate, owner))
	assert.True(t, CanView(StateBadgeOnly, self, owner))
	assert.False(t, CanView(StateBadgeOnly, otherDelegate, owner))
	assert.False(t, CanView(StateBadgeOnly, otherSelf, owner))
	assert.False(t, CanView(StateBadgeOnly, auth.Anonymous, owner))

	assert.True(t, CanView(StatePrivate, delegate, owner))
	assert.False(t, CanView(StatePrivate, otherDelegate, owner))
	assert.True(t, CanView(StatePublic, auth.Anonymous, owner))
}

func TestConsentFormsAlwaysPrivate(t *testing.T) {
	form, err := New(KindConsentForm, Upload{Filename: "form.pdf", Content: pdfBytes})
	require.NoError(t, err)
	owner := Owner{CountryID: "c1", PersonID: "p1", ConsentUI: true, PhotoConsent: PhotoConsentWebsite}
	assert.Equal(t, StatePrivate, Resolve(form, owner))
}
