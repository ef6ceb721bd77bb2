package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var defaultRoster []byte

// Roster is the YAML file of hand-written demo accounts.
type Roster struct {
	Users []RosterUser `yaml:"users"`
}

// RosterUser is one account of the roster. Seeded defaults to true.
type RosterUser struct {
	Email       string         `yaml:"email"`
	DisplayName string         `yaml:"display_name"`
	Password    string         `yaml:"password"`
	AvatarURL   string         `yaml:"avatar_url"`
	Seeded      *bool          `yaml:"seeded"`
	Profile     *RosterProfile `yaml:"profile"`
	Goals       []RosterGoal   `yaml:"goals"`
}

type RosterProfile struct {
	Pronouns     string `yaml:"pronouns"`
	Bio          string `yaml:"bio"`
	Location     string `yaml:"location"`
	FitnessLevel string `yaml:"fitness_level"`
	PrimaryGoals string `yaml:"primary_goals"`
	Skills       string `yaml:"skills"`
}

type RosterGoal struct {
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Category     string   `yaml:"category"`
	TargetValue  *float64 `yaml:"target_value"`
	CurrentValue float64  `yaml:"current_value"`
	Unit         string   `yaml:"unit"`
	Priority     string   `yaml:"priority"`
}

// IsSeeded reports whether the account is a seeded demo account.
func (u RosterUser) IsSeeded() bool {
	return u.Seeded == nil || *u.Seeded
}

// ParseRoster decodes a roster document.
func ParseRoster(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	seen := make(map[string]bool, len(r.Users))
	for i, u := range r.Users {
		if u.Email == "" || u.Password == "" || u.DisplayName == "" {
			return nil, fmt.Errorf("roster entry %d: email, display_name and password are required", i)
		}
		if seen[u.Email] {
			return nil, fmt.Errorf("roster entry %d: duplicate email %s", i, u.Email)
		}
		seen[u.Email] = true
	}
	return &r, nil
}

// LoadRoster reads the roster at path, or the built-in roster when path is empty.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return ParseRoster(defaultRoster)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}
