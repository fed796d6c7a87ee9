package data

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"apollo.io/contract-tests/servicedef"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

//go:embed data-files
var dataFilesRoot embed.FS

const registrationsFile = "data-files/registrations.yaml"

// Registrations maps a fixture name to the request body it describes.
type Registrations map[string]servicedef.RegisterUserParams

type registrationsFileContent struct {
	Registrations Registrations `json:"registrations"`
}

// LoadRegistrations reads the embedded registration fixtures.
func LoadRegistrations() (Registrations, error) {
	raw, err := dataFilesRoot.ReadFile(registrationsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", registrationsFile, err)
	}
	return ParseRegistrations(raw)
}

// ParseRegistrations parses registration fixtures in JSON or YAML. Every fixture must have a
// username, an email, and a password.
func ParseRegistrations(raw []byte) (Registrations, error) {
	var content registrationsFileContent
	if err := ParseJSONOrYAML(raw, &content); err != nil {
		return nil, fmt.Errorf("error parsing registration fixtures: %w", err)
	}
	if len(content.Registrations) == 0 {
		return nil, errors.New("no registration fixtures defined")
	}
	for _, name := range content.Registrations.Names() {
		p := content.Registrations[name]
		var missing []string
		if p.Username == "" {
			missing = append(missing, "username")
		}
		if p.Email == "" {
			missing = append(missing, "email")
		}
		if p.Password == "" {
			missing = append(missing, "password")
		}
		if len(missing) != 0 {
			return nil, fmt.Errorf("registration fixture %q is missing %s", name, strings.Join(missing, ", "))
		}
	}
	return content.Registrations, nil
}

// Names returns the fixture names in sorted order.
func (r Registrations) Names() []string {
	names := maps.Keys(r)
	slices.Sort(names)
	return names
}

// Get returns the named fixture, or an error listing the available names.
func (r Registrations) Get(name string) (servicedef.RegisterUserParams, error) {
	p, ok := r[name]
	if !ok {
		return servicedef.RegisterUserParams{}, fmt.Errorf("unknown registration fixture %q (have: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}
