package auth

// Account is a login credential mapped to an actor scope. Delegate accounts
// are scoped to one country; self-registration accounts additionally to one
// person record. Admin and score-entry accounts carry no scope.
type Account struct {
	ID           string
	Username     string
	PasswordHash string

	Kind      Kind
	CountryID string
	PersonID  string

	// Disabled accounts cannot log in; retiring a country disables its
	// delegate and self-registration accounts.
	Disabled bool
}

// ActorFor returns the actor this account acts as.
func (a Account) ActorFor() Actor {
	return Actor{Kind: a.Kind, CountryID: a.CountryID, PersonID: a.PersonID}
}
