// Package profile persists lumoctl's per-instance state: service URLs for
// each platform instance and the operator's session. The store is a single
// encrypted file; commands receive an explicit Session value rather than
// reading ambient globals.
package profile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Services holds the endpoint URLs of one platform instance.
type Services struct {
	Config    string `json:"config"`
	Directory string `json:"directory"`
	Portal    string `json:"portal"`
	Collab    string `json:"collab"`
	Identity  string `json:"identity"`
}

// SessionUser is the operator recorded by `lumoctl login`.
type SessionUser struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Token     string `json:"token,omitempty"`
}

// Profile is one named instance configuration plus its session.
type Profile struct {
	Name     string      `json:"name"`
	Services Services    `json:"services"`
	User     SessionUser `json:"user"`
}

// Session is the explicit context handed to commands: who is logged in and
// which instance they talk to.
type Session struct {
	User     SessionUser
	Services Services
}

func (p *Profile) Session() Session {
	return Session{User: p.User, Services: p.Services}
}

// File is the decrypted content of the profile store.
type File struct {
	CurrentProfile int       `json:"currentProfileIndex"`
	Profiles       []Profile `json:"profiles"`
}

// Active returns the currently selected profile. The store guarantees at
// least one profile exists.
func (f *File) Active() *Profile {
	if f.CurrentProfile < 0 || f.CurrentProfile >= len(f.Profiles) {
		f.CurrentProfile = 0
	}
	return &f.Profiles[f.CurrentProfile]
}

// SetActive switches the active profile by name.
func (f *File) SetActive(name string) error {
	for i := range f.Profiles {
		if f.Profiles[i].Name == name {
			f.CurrentProfile = i
			return nil
		}
	}
	return errors.Errorf("no profile named %q", name)
}

// AddProfile inserts or replaces a profile by name and makes it active.
func (f *File) AddProfile(p Profile) {
	for i := range f.Profiles {
		if f.Profiles[i].Name == p.Name {
			f.Profiles[i] = p
			f.CurrentProfile = i
			return
		}
	}
	f.Profiles = append(f.Profiles, p)
	f.CurrentProfile = len(f.Profiles) - 1
}

// Store reads and writes the encrypted profile file.
type Store struct {
	path       string
	passphrase string
}

func Open(path, passphrase string) *Store {
	return &Store{path: path, passphrase: passphrase}
}

// Load decrypts the store. A missing file yields a fresh single-profile
// default rather than an error, matching first-run behavior.
func (s *Store) Load() (*File, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &File{Profiles: []Profile{{Name: "default"}}}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read profile store")
	}
	plain, err := open(raw, s.passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt profile store")
	}
	var f File
	if err := json.Unmarshal(plain, &f); err != nil {
		return nil, errors.Wrap(err, "decode profile store")
	}
	if len(f.Profiles) == 0 {
		f.Profiles = []Profile{{Name: "default"}}
		f.CurrentProfile = 0
	}
	return &f, nil
}

// Save encrypts and atomically replaces the store file.
func (s *Store) Save(f *File) error {
	plain, err := json.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "encode profile store")
	}
	sealed, err := seal(plain, s.passphrase)
	if err != nil {
		return errors.Wrap(err, "encrypt profile store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create profile directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return errors.Wrap(err, "write profile store")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replace profile store")
}

// ClearSession drops the active profile's session user, keeping service URLs.
func (f *File) ClearSession() {
	f.Active().User = SessionUser{}
}
