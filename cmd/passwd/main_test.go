package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/passwd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	i := 0
	readPassword = func(int) ([]byte, error) {
		a := answers[i]
		i++
		return []byte(a), nil
	}
}

func TestRun_Bcrypt(t *testing.T) {
	stubPasswords(t, "s3cret", "s3cret")
	var out, errOut bytes.Buffer

	require.NoError(t, run([]string{"-cost", "4"}, &out, &errOut))

	stored := strings.TrimSpace(out.String())
	assert.Equal(t, passwd.FormBcrypt, passwd.Classify(stored))
	cost, err := bcrypt.Cost([]byte(stored))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)

	ok, err := passwd.NewVerifier(logging.Nop{}).Verify(context.Background(), "s3cret", stored)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, errOut.String(), "Repeat password")
}

func TestRun_Argon2(t *testing.T) {
	stubPasswords(t, "s3cret", "s3cret")
	var out, errOut bytes.Buffer

	require.NoError(t, run([]string{"-alg", "argon2id"}, &out, &errOut))

	stored := strings.TrimSpace(out.String())
	assert.Equal(t, passwd.FormArgon2, passwd.Classify(stored))
	ok, err := passwd.NewVerifier(logging.Nop{}).Verify(context.Background(), "s3cret", stored)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRun_Errors(t *testing.T) {
	var out, errOut bytes.Buffer

	stubPasswords(t, "a", "b")
	assert.ErrorIs(t, run(nil, &out, &errOut), errMismatch)

	stubPasswords(t, "", "")
	assert.ErrorIs(t, run(nil, &out, &errOut), errEmpty)

	assert.Error(t, run([]string{"-alg", "md5"}, &out, &errOut))
	assert.Error(t, run([]string{"-bogus"}, &out, &errOut))
	assert.Empty(t, out.String())
}
