package settings

import (
	"errors"
	"fmt"

	"octolabel/internal/catalog"
)

var ErrRestricted = errors.New("restricted settings path")

// Restrictions lists settings paths the host UI must not expose.
//
// Never paths are hidden from everyone; admin paths only from non-admin
// callers. The engine itself does not enforce them, the API layer does.
var Restrictions = struct {
	Never [][]string
	Admin [][]string
}{
	Never: [][]string{{"events", string(catalog.Test)}},
	Admin: [][]string{
		{"consumer_key"},
		{"consumer_secret"},
		{"access_token"},
		{"access_token_secret"},
		{"script_before"},
		{"script_after"},
	},
}

// StripNever removes never-exposed paths from v in place.
func StripNever(v *Values) {
	for _, p := range Restrictions.Never {
		if len(p) == 2 && p[0] == "events" && v.Events != nil {
			delete(v.Events, catalog.ID(p[1]))
		}
	}
}

// RedactAdmin clears admin-only fields in place.
func RedactAdmin(v *Values) {
	v.ConsumerKey = nil
	v.ConsumerSecret = nil
	v.AccessToken = nil
	v.AccessTokenSecret = nil
	v.ScriptBefore = nil
	v.ScriptAfter = nil
}

// CheckPatch reports ErrRestricted when patch writes a path the caller may
// not touch.
func CheckPatch(patch Values, admin bool) error {
	if _, ok := patch.Events[catalog.Test]; ok {
		return fmt.Errorf("%w: events.test", ErrRestricted)
	}
	if admin {
		return nil
	}
	if patch.ConsumerKey != nil || patch.ConsumerSecret != nil ||
		patch.AccessToken != nil || patch.AccessTokenSecret != nil ||
		patch.ScriptBefore != nil || patch.ScriptAfter != nil {
		return fmt.Errorf("%w: admin-only field", ErrRestricted)
	}
	return nil
}
