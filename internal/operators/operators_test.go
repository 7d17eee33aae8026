package operators_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basicanalytics/internal/operators"
	"basicanalytics/internal/testsupport"
)

func TestCreateOperator(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	op, err := operators.CreateOperator(db, logger, "  Admin@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", op.Email)
	assert.NotEqual(t, "s3cret-pass", op.EncryptedPassword)

	_, err = operators.CreateOperator(db, logger, "admin@example.com", "other")
	assert.True(t, errors.Is(err, operators.ErrOperatorExists))

	_, err = operators.CreateOperator(db, logger, "", "pw")
	assert.Error(t, err)
	_, err = operators.CreateOperator(db, logger, "new@example.com", "")
	assert.Error(t, err)

	found, err := operators.FindByID(db, op.ID)
	require.NoError(t, err)
	assert.Equal(t, op.Email, found.Email)

	_, err = operators.FindByID(db, op.ID+100)
	assert.True(t, errors.Is(err, operators.ErrOperatorNotFound))
}

func TestAuthenticate(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	testsupport.CreateTestOperator(t, db, "admin@example.com", "correct-horse")

	testCases := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "admin@example.com", "correct-horse", nil},
		{"email case ignored", "ADMIN@example.com", "correct-horse", nil},
		{"wrong password", "admin@example.com", "battery-staple", operators.ErrInvalidCredentials},
		{"unknown email", "ghost@example.com", "correct-horse", operators.ErrInvalidCredentials},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			op, err := operators.Authenticate(db, tc.email, tc.password)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr))
				assert.Nil(t, op)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "admin@example.com", op.Email)
		})
	}
}

func TestChangePassword(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	testsupport.CreateTestOperator(t, db, "admin@example.com", "old-password")

	require.NoError(t, operators.ChangePassword(db, logger, "admin@example.com", "new-password"))

	_, err := operators.Authenticate(db, "admin@example.com", "old-password")
	assert.True(t, errors.Is(err, operators.ErrInvalidCredentials))

	_, err = operators.Authenticate(db, "admin@example.com", "new-password")
	assert.NoError(t, err)

	err = operators.ChangePassword(db, logger, "ghost@example.com", "x")
	assert.True(t, errors.Is(err, operators.ErrOperatorNotFound))

	assert.Error(t, operators.ChangePassword(db, logger, "admin@example.com", ""))
}
