package model

// Optional is a field in a partial update: either unset, or set to Value.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

// ProfilePatch describes a partial profile update.  Each field is applied
// independently; unset fields leave the stored value untouched.
type ProfilePatch struct {
	FirstName      Optional[string]
	LastName       Optional[string]
	Email          Optional[string]
	ProfilePicture Optional[string]
	// IsVerified is derived, never taken from the client: an email change
	// resets verification.
	IsVerified Optional[bool]
}

// Empty reports whether the patch carries no client-supplied field.
func (p ProfilePatch) Empty() bool {
	return !p.FirstName.Set && !p.LastName.Set && !p.Email.Set && !p.ProfilePicture.Set
}
