package scoring

// Standing is one contestant's score row: entered cells by problem number,
// the running total, and the award once medal boundaries are set.
type Standing struct {
	PersonID   string
	CountryID  string
	GivenName  string
	FamilyName string
	Role       string
	Scores     map[int]int
	Total      int
	Award      string
}
