package mockapi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the fixed data the mock service starts with.
type Seed struct {
	// Students maps each student record to the username it is linked to.
	Students []SeedStudent `yaml:"students"`
	// Sessions are the classroom sessions. Several may share a class code.
	Sessions []SeedSession `yaml:"sessions"`
}

// SeedStudent is a student record linked to a login.
type SeedStudent struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
}

// SeedSession is a classroom session and the students enrolled in it.
type SeedSession struct {
	ID        int64   `yaml:"id"`
	ClassCode string  `yaml:"class_code"`
	Roster    []int64 `yaml:"roster"`
}

// DefaultSeed returns the built-in demo data:
//
//	ann   -> student 1 "Ann"   (enrolled in ABC1)
//	bob   -> student 2 "Bob"   (enrolled in ABC1 and XYZ9)
//	carol -> no student record
//
// Class code DUP2 matches two sessions, 50 and 51.
func DefaultSeed() Seed {
	return Seed{
		Students: []SeedStudent{
			{ID: 1, Name: "Ann", Username: "ann"},
			{ID: 2, Name: "Bob", Username: "bob"},
		},
		Sessions: []SeedSession{
			{ID: 42, ClassCode: "ABC1", Roster: []int64{1, 2}},
			{ID: 43, ClassCode: "XYZ9", Roster: []int64{2}},
			{ID: 50, ClassCode: "DUP2", Roster: []int64{1}},
			{ID: 51, ClassCode: "DUP2", Roster: []int64{1, 2}},
		},
	}
}

func (s Seed) session(id int64) (SeedSession, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return SeedSession{}, false
}

func (s Seed) student(id int64) (SeedStudent, bool) {
	for _, st := range s.Students {
		if st.ID == id {
			return st, true
		}
	}
	return SeedStudent{}, false
}

func (s SeedSession) enrolled(studentID int64) bool {
	for _, id := range s.Roster {
		if id == studentID {
			return true
		}
	}
	return false
}

// LoadSeed reads seed data from a YAML file. Unknown keys are rejected.
func LoadSeed(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	defer f.Close()

	var seed Seed
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return seed, nil
}
