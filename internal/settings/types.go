package settings

import (
	"octolabel/internal/catalog"
)

// Values is the persisted settings document. Every field is optional so a
// partial save (patch) and a full document share one type.
type Values struct {
	ConsumerKey       *string `json:"consumer_key,omitempty"`
	ConsumerSecret    *string `json:"consumer_secret,omitempty"`
	AccessToken       *string `json:"access_token,omitempty"`
	AccessTokenSecret *string `json:"access_token_secret,omitempty"`

	Username *string `json:"username,omitempty"`
	URL      *string `json:"url,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`

	Events map[catalog.ID]EventOverride `json:"events,omitempty"`

	AllowScripts *bool   `json:"allow_scripts,omitempty"`
	ScriptBefore *string `json:"script_before,omitempty"`
	ScriptAfter  *string `json:"script_after,omitempty"`

	PrinterIP *string `json:"printerip,omitempty"`
}

// EventOverride is the user-configurable part of an event definition.
type EventOverride struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Message *string `json:"message,omitempty"`
	Step    *int    `json:"step,omitempty"`
}

func (o EventOverride) isZero() bool {
	return o.Enabled == nil && o.Message == nil && o.Step == nil
}

// GlobalOptions is the merged, non-event part of the settings.
type GlobalOptions struct {
	PrinterAddress string
	AllowScripts   bool
	ScriptBefore   string
	ScriptAfter    string

	URL      string
	Avatar   string
	Username string
}

// Fingerprint is the identity fingerprint used by the change monitor.
func (g GlobalOptions) Fingerprint() string {
	return g.URL + g.Avatar + g.Username
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T { return &v }

// Apply overlays every non-nil field of patch onto v.
// Event overrides merge per field, so a patch touching only "enabled" keeps
// a previously stored message.
func (v *Values) Apply(patch Values) {
	setIf(&v.ConsumerKey, patch.ConsumerKey)
	setIf(&v.ConsumerSecret, patch.ConsumerSecret)
	setIf(&v.AccessToken, patch.AccessToken)
	setIf(&v.AccessTokenSecret, patch.AccessTokenSecret)
	setIf(&v.Username, patch.Username)
	setIf(&v.URL, patch.URL)
	setIf(&v.Avatar, patch.Avatar)
	setIf(&v.AllowScripts, patch.AllowScripts)
	setIf(&v.ScriptBefore, patch.ScriptBefore)
	setIf(&v.ScriptAfter, patch.ScriptAfter)
	setIf(&v.PrinterIP, patch.PrinterIP)

	if len(patch.Events) == 0 {
		return
	}
	if v.Events == nil {
		v.Events = make(map[catalog.ID]EventOverride, len(patch.Events))
	}
	for id, p := range patch.Events {
		cur := v.Events[id]
		setIf(&cur.Enabled, p.Enabled)
		setIf(&cur.Message, p.Message)
		setIf(&cur.Step, p.Step)
		if cur.isZero() {
			continue
		}
		v.Events[id] = cur
	}
}

func setIf[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	val := *src
	*dst = &val
}

// Global resolves the merged global options.
func (v Values) Global() GlobalOptions {
	return GlobalOptions{
		PrinterAddress: deref(v.PrinterIP),
		AllowScripts:   v.AllowScripts != nil && *v.AllowScripts,
		ScriptBefore:   deref(v.ScriptBefore),
		ScriptAfter:    deref(v.ScriptAfter),
		URL:            deref(v.URL),
		Avatar:         deref(v.Avatar),
		Username:       deref(v.Username),
	}
}

// Event merges the stored override for id on top of the catalog default.
func (v Values) Event(id catalog.ID) (catalog.EventDefinition, bool) {
	def, ok := catalog.Lookup(id)
	if !ok {
		return catalog.EventDefinition{}, false
	}
	ov, ok := v.Events[id]
	if !ok {
		return def, true
	}
	// Internal events keep their catalog enabled flag; users cannot toggle them.
	if ov.Enabled != nil && !def.Internal {
		def.Enabled = *ov.Enabled
	}
	if ov.Message != nil {
		def.Message = *ov.Message
	}
	if ov.Step != nil {
		step := *ov.Step
		def.Step = &step
	}
	return def, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
