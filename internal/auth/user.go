package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

// User is an account entry from users.toml
type User struct {
	Username string `toml:"username"`
	Password string `toml:"password"` // hashed after first load
	Role     string `toml:"role"`     // admin, user
	Created  string `toml:"created"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

type userConfig struct {
	Users []User `toml:"users"`
}

// UserStore manages account lookup and credential checks backed by a
// TOML file on disk
type UserStore struct {
	mutex    sync.RWMutex
	users    map[string]*User
	filePath string
}

// NewUserStore loads accounts from the given file, creating it with a
// default admin account when missing
func NewUserStore(filePath string) (*UserStore, error) {
	store := &UserStore{
		users:    make(map[string]*User),
		filePath: filePath,
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return store, nil
}

func (us *UserStore) load() error {
	if _, err := os.Stat(us.filePath); os.IsNotExist(err) {
		return us.createDefaultAdmin()
	}

	var config userConfig
	if _, err := toml.DecodeFile(us.filePath, &config); err != nil {
		return fmt.Errorf("failed to parse users file: %w", err)
	}

	needsSave := false
	for i := range config.Users {
		user := &config.Users[i]

		// Plaintext passwords entered by the operator get hashed on the
		// next startup and written back.
		if !isHashedPassword(user.Password) {
			hashed, err := hashPassword(user.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password for user %s: %w", user.Username, err)
			}
			user.Password = hashed
			needsSave = true
		}

		us.users[user.Username] = user
	}

	if needsSave {
		return us.save()
	}
	return nil
}

func (us *UserStore) createDefaultAdmin() error {
	password, err := generateRandomSecret(12)
	if err != nil {
		return fmt.Errorf("failed to generate default password: %w", err)
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}

	admin := User{
		Username: "admin",
		Password: hashed,
		Role:     "admin",
		Created:  time.Now().Format("2006-01-02 15:04:05"),
	}
	us.users["admin"] = &admin

	if err := us.save(); err != nil {
		return err
	}

	// Print the generated password so the operator can log in once
	fmt.Printf("\n"+
		"=====================================\n"+
		"DEFAULT ADMIN USER CREATED\n"+
		"=====================================\n"+
		"Username: admin\n"+
		"Password: %s\n"+
		"=====================================\n"+
		"Please change this password by editing users.toml\n\n", password)

	return nil
}

// save writes the current accounts back to the TOML file. Callers must
// hold at least a read lock or have exclusive access during startup.
func (us *UserStore) save() error {
	file, err := os.Create(us.filePath)
	if err != nil {
		return fmt.Errorf("failed to create users file: %w", err)
	}
	defer file.Close()

	header := `# Groove Users Configuration
# This file contains user accounts for authentication.
# Passwords will be automatically hashed when the server starts.
# To add a new user, add a new [[users]] section with username and password.
# To change a password, replace the hashed password with a new plaintext password.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write users file header: %w", err)
	}

	var config userConfig
	for _, user := range us.users {
		config.Users = append(config.Users, *user)
	}

	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return fmt.Errorf("failed to encode users to TOML: %w", err)
	}
	return nil
}

// Authenticate checks a username/password pair
func (us *UserStore) Authenticate(username, password string) bool {
	us.mutex.RLock()
	user, exists := us.users[username]
	us.mutex.RUnlock()

	if !exists {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

// GetUser returns an account without its password hash
func (us *UserStore) GetUser(username string) *User {
	us.mutex.RLock()
	defer us.mutex.RUnlock()

	user, exists := us.users[username]
	if !exists {
		return nil
	}
	return &User{
		Username: user.Username,
		Role:     user.Role,
		Created:  user.Created,
	}
}

// RegisterUser adds a new non-admin account and persists it
func (us *UserStore) RegisterUser(username, password string) error {
	us.mutex.Lock()
	defer us.mutex.Unlock()

	if _, exists := us.users[username]; exists {
		return fmt.Errorf("user already exists")
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	us.users[username] = &User{
		Username: username,
		Password: hashed,
		Role:     "user",
		Created:  time.Now().Format("2006-01-02 15:04:05"),
	}

	return us.save()
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// isHashedPassword checks for the bcrypt prefix ($2a$, $2b$, $2x$, $2y$)
func isHashedPassword(password string) bool {
	return len(password) >= 4 &&
		password[0] == '$' &&
		password[1] == '2' &&
		(password[2] == 'a' || password[2] == 'b' || password[2] == 'x' || password[2] == 'y') &&
		password[3] == '$'
}

// generateRandomSecret returns a hex string of the requested length
func generateRandomSecret(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}
