package preferences

import (
	"strconv"

	"github.com/jrsteele09/ailab-client/internal/utils"
)

// Key names a persisted preference.
type Key string

const (
	KeyAuthToken     Key = "auth_token"
	KeyRefreshToken  Key = "refresh_token"
	KeyUserID        Key = "user_id"
	KeyUserEmail     Key = "user_email"
	KeyUserFirstName Key = "user_first_name"
	KeyUserLastName  Key = "user_last_name"
	KeyUserPhone     Key = "user_phone"
	KeyRememberMe    Key = "remember_me" // boolean, stored as "true"/"false"
)

// SessionKeys lists every key that makes up a persisted session.
var SessionKeys = []Key{
	KeyAuthToken,
	KeyRefreshToken,
	KeyUserID,
	KeyUserEmail,
	KeyUserFirstName,
	KeyUserLastName,
	KeyUserPhone,
	KeyRememberMe,
}

// SessionState is the persisted session. A nil field means the key is absent,
// which is distinct from an empty string.
type SessionState struct {
	Token        *string
	RefreshToken *string
	RememberMe   bool
	UserID       *string
	Email        *string
	FirstName    *string
	LastName     *string
	Phone        *string
}

// HasToken reports whether a token is stored. For bootstrap purposes a stored
// token means the user is logged in, whatever the server thinks of it.
func (s SessionState) HasToken() bool {
	return s.Token != nil
}

// Values flattens the session into the key space. Absent fields are omitted.
func (s SessionState) Values() map[Key]string {
	values := map[Key]string{
		KeyRememberMe: strconv.FormatBool(s.RememberMe),
	}
	set := func(k Key, v *string) {
		if v != nil {
			values[k] = *v
		}
	}
	set(KeyAuthToken, s.Token)
	set(KeyRefreshToken, s.RefreshToken)
	set(KeyUserID, s.UserID)
	set(KeyUserEmail, s.Email)
	set(KeyUserFirstName, s.FirstName)
	set(KeyUserLastName, s.LastName)
	set(KeyUserPhone, s.Phone)
	return values
}

// SessionFromValues rebuilds a SessionState from stored values.
func SessionFromValues(values map[Key]string) SessionState {
	return SessionState{
		Token:        lookup(values, KeyAuthToken),
		RefreshToken: lookup(values, KeyRefreshToken),
		RememberMe:   parseBool(lookup(values, KeyRememberMe)),
		UserID:       lookup(values, KeyUserID),
		Email:        lookup(values, KeyUserEmail),
		FirstName:    lookup(values, KeyUserFirstName),
		LastName:     lookup(values, KeyUserLastName),
		Phone:        lookup(values, KeyUserPhone),
	}
}

func lookup(values map[Key]string, key Key) *string {
	if v, ok := values[key]; ok {
		return utils.Ptr(v)
	}
	return nil
}

func parseBool(v *string) bool {
	if v == nil {
		return false
	}
	b, err := strconv.ParseBool(*v)
	return err == nil && b
}
