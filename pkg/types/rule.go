package types

// Rule routes newly created files whose name matches Pattern into Folder.
// Rules are evaluated in definition order and the first match wins.
type Rule struct {
	Name     string `yaml:"name,omitempty" json:"name,omitempty" toml:"name,omitempty"`             // Label shown in the rules editor
	Pattern  string `yaml:"pattern,omitempty" json:"pattern,omitempty" toml:"pattern,omitempty"`    // Regular expression matched against the bare filename
	Folder   string `yaml:"folder,omitempty" json:"folder,omitempty" toml:"folder,omitempty"`       // Destination folder, relative to the vault root
	Template string `yaml:"template,omitempty" json:"template,omitempty" toml:"template,omitempty"` // Optional vault-relative template appended after the move
}

// Usable reports whether the rule can route anything. Rules missing a pattern
// or a folder are ignored rather than rejected.
func (r Rule) Usable() bool {
	return r.Pattern != "" && r.Folder != ""
}

// Complete reports whether the rules editor may commit the rule.
func (r Rule) Complete() bool {
	return r.Name != "" && r.Pattern != ""
}

// Label returns the rule name, falling back to the pattern for unnamed rules.
func (r Rule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Pattern
}
