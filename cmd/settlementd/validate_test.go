package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement-form-backend/internal/form"
	"settlement-form-backend/internal/form/formtest"
)

var at = time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

func TestRunValidate_Complete(t *testing.T) {
	raw, err := json.Marshal(formtest.Complete())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runValidate(&out, bytes.NewReader(raw), form.Agreement, at))
	assert.Contains(t, out.String(), "no errors")
	assert.Contains(t, out.String(), "(100%)")
}

func TestRunValidate_ListsErrors(t *testing.T) {
	s := formtest.Complete()
	s.MotherPhone = ""
	s.FatherPhone = ""
	s.Email = "not-an-email"
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var out bytes.Buffer
	err = runValidate(&out, bytes.NewReader(raw), form.Agreement, at)
	require.Error(t, err)
	assert.Contains(t, out.String(), "parentPhones\t")
	assert.Contains(t, out.String(), "email\t")
}

func TestRunValidate_BadJSON(t *testing.T) {
	var out bytes.Buffer
	err := runValidate(&out, strings.NewReader("{"), form.Agreement, at)
	assert.Error(t, err)
}
