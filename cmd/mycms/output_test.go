package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/mycms-backend/internal/tenants"
)

func sampleDocument() *tenants.Document {
	return &tenants.Document{
		ID:    "t1",
		Email: "a@b.com",
		Products: []tenants.Product{
			{ProductID: "p1", Name: "Mug", RegularPrice: decimal.RequireFromString("12.5")},
		},
	}
}

func TestWriteDocumentYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDocument(&buf, sampleDocument(), "yaml"))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "a@b.com", decoded["email"])
	products, ok := decoded["products"].([]any)
	require.True(t, ok)
	first, ok := products[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "12.5", first["regularPrice"])
}

func TestWriteDocumentJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDocument(&buf, sampleDocument(), ""))
	assert.True(t, strings.Contains(buf.String(), `"email": "a@b.com"`))
}

func TestWriteDocumentUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeDocument(&buf, sampleDocument(), "xml"))
}

func TestCommandTree(t *testing.T) {
	show, _, err := tenantCmd().Find([]string{"show"})
	require.NoError(t, err)
	assert.Equal(t, "show [email]", show.Use)
	assert.NotNil(t, show.Flags().Lookup("output"))

	gen, _, err := siteCmd().Find([]string{"generate"})
	require.NoError(t, err)
	assert.NotNil(t, gen.Flags().Lookup("theme"))
}
