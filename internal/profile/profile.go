package profile

import "sort"

// Profile bundles the tunables of one kind of image field.
type Profile struct {
	Name      string
	Tolerance float64 // accepted |w/h - 1| before a crop is required
	MaxBytes  int64   // per-file upload limit
	Quality   int     // encoding quality 1-100 for cropped JPEGs
}

// Built-in profiles.
var profiles = map[string]Profile{
	"product": {
		Name:      "product",
		Tolerance: 0.05,
		MaxBytes:  10 << 20,
		Quality:   90,
	},
	"product-strict": {
		Name:      "product-strict",
		Tolerance: 0.02,
		MaxBytes:  10 << 20,
		Quality:   90,
	},
	"banner": {
		Name:      "banner",
		Tolerance: 0.05,
		MaxBytes:  20 << 20,
		Quality:   85,
	},
}

// Get returns a profile by name. Falls back to product if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles["product"]
	p.Name = name // preserve requested name
	return p
}

// Names lists the built-in profiles alphabetically.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
