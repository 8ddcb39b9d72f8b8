package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/internal/auth"
	"github.com/farellandr/lanzalife/internal/models"
)

const minPasswordLength = 6

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUnknownRole  = errors.New("unknown role")
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordLength)
)

// CreateUser stores a user with any seeded role, Admin included.
func CreateUser(ctx context.Context, db *gorm.DB, username, password, roleName string) (models.User, error) {
	db = db.WithContext(ctx)
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, errors.New("username cannot be empty")
	}
	if len(password) < minPasswordLength {
		return models.User{}, ErrWeakPassword
	}

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("%w %q, expected one of %s", ErrUnknownRole, roleName, strings.Join(models.SeedRoleNames, ", "))
		}
		return models.User{}, err
	}

	var existing int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		return models.User{}, err
	}
	if existing > 0 {
		return models.User{}, fmt.Errorf("%w: %s", ErrUserExists, username)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{Username: username, Password: hashed, RoleID: role.ID, Role: role}
	if err := db.Omit("Role").Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

// RunCreateUser handles the create-user subcommand.
func RunCreateUser(args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	username := fs.String("username", "", "Username of the new account")
	roleName := fs.String("role", models.RoleAdmin, "Role name: Admin, Guest or \"Place Owner\"")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lanzalife create-user -username NAME [-role ROLE]\n\n")
		fmt.Fprintf(os.Stderr, "Creates a user after prompting for the password.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *username == "" {
		fs.Usage()
		return errors.New("-username is required")
	}

	password, err := promptPassword(os.Stdin, "Enter password:   ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword(os.Stdin, "Confirm password: ")
	if err != nil {
		return fmt.Errorf("read password confirmation: %w", err)
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	_, db, err := openDatabase(logger)
	if err != nil {
		return err
	}

	user, err := CreateUser(context.Background(), db, *username, password, *roleName)
	if err != nil {
		return err
	}
	logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Str("role", user.Role.Name).Msg("User created")
	return nil
}

// promptPassword reads a password with asterisk echo from a terminal, or a
// plain line when input is piped.
func promptPassword(in *os.File, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(in.Fd())

	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimRight(line, "\r\n"), nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(password), err
	}
	defer term.Restore(fd, oldState)

	return readMasked(bufio.NewReader(in), os.Stderr)
}

// readMasked collects printable characters until Enter, echoing one
// asterisk per character and honouring backspace.
func readMasked(r io.RuneReader, echo io.Writer) (string, error) {
	var password []rune
	for {
		char, _, err := r.ReadRune()
		if err != nil {
			fmt.Fprint(echo, "\r\n")
			if errors.Is(err, io.EOF) {
				return string(password), nil
			}
			return "", err
		}

		switch char {
		case '\n', '\r':
			fmt.Fprint(echo, "\r\n")
			return string(password), nil
		case 127, 8:
			if len(password) > 0 {
				password = password[:len(password)-1]
				fmt.Fprint(echo, "\b \b")
			}
		case 3: // Ctrl+C
			fmt.Fprint(echo, "\r\n")
			return "", errors.New("interrupted")
		default:
			if char >= 32 && char != 127 {
				password = append(password, char)
				fmt.Fprint(echo, "*")
			}
		}
	}
}
