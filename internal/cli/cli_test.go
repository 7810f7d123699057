package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

func TestInitDBCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")

	cmd := NewInitDBCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-db", dbPath, "-seed", "-bcrypt-cost", "4"}))
	assert.True(t, cmd.Seed)
	require.NoError(t, cmd.Run())

	// Running again must not duplicate sample data.
	require.NoError(t, cmd.Run())

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var users, books int64
	require.NoError(t, db.DB.Model(&entities.User{}).Count(&users).Error)
	require.NoError(t, db.DB.Model(&entities.Book{}).Count(&books).Error)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(10), books)
}

func TestCreateUserCommand_ParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"valid", []string{"-username", "librarian", "-email", "lib@venda.ac.za", "-role", "admin"}, ""},
		{"missing username", []string{"-email", "lib@venda.ac.za"}, "-username"},
		{"missing email", []string{"-username", "librarian"}, "-email"},
		{"bad role", []string{"-username", "librarian", "-email", "lib@venda.ac.za", "-role", "dean"}, "invalid role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCreateUserCommand().ParseFlags(tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestCreateUserCommand_Run(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")

	answers := []string{"s3cret-pass", "s3cret-pass"}
	cmd := NewCreateUserCommand()
	cmd.readPassword = func(string) (string, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
	require.NoError(t, cmd.ParseFlags([]string{"-db", dbPath, "-username", "librarian", "-email", "lib@venda.ac.za", "-role", "admin", "-bcrypt-cost", "4"}))
	require.NoError(t, cmd.Run())

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var user entities.User
	require.NoError(t, db.DB.Where("username = ?", "librarian").First(&user).Error)
	assert.Equal(t, entities.UserRoleAdmin, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
}

func TestCreateUserCommand_PasswordMismatch(t *testing.T) {
	answers := []string{"first-password", "second-password"}
	cmd := NewCreateUserCommand()
	cmd.readPassword = func(string) (string, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
	require.NoError(t, cmd.ParseFlags([]string{"-db", filepath.Join(t.TempDir(), "x.db"), "-username", "librarian", "-email", "lib@venda.ac.za"}))
	assert.ErrorContains(t, cmd.Run(), "do not match")
}
