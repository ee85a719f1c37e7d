package models

// Dataset is the four relations in insertion order, as supplied by a seed source.
type Dataset struct {
	Users   []User   `json:"users" yaml:"users"`
	Moments []Moment `json:"moments" yaml:"moments"`
	RSVPs   []RSVP   `json:"rsvps" yaml:"rsvps"`
	Follows []Follow `json:"follows" yaml:"follows"`
}

// Counts returns the size of each relation, for logging.
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		"users":   len(d.Users),
		"moments": len(d.Moments),
		"rsvps":   len(d.RSVPs),
		"follows": len(d.Follows),
	}
}
