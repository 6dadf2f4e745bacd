package awsconf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions(t *testing.T) {
	assert.Len(t, Options{}.LoadOptions(), 0)
	assert.Len(t, Options{Region: "us-west-2"}.LoadOptions(), 1)
	assert.Len(t, Options{Region: "us-west-2", AccessKey: "AK", SecretKey: "SK", Profile: "ops"}.LoadOptions(), 2)
	assert.Len(t, Options{Profile: "ops"}.LoadOptions(), 1)
	assert.Len(t, Options{AccessKey: "AK"}.LoadOptions(), 0, "half a key pair is ignored")
}

func TestLoadStaticCredentials(t *testing.T) {
	cfg, err := Load(context.Background(), Options{Region: "us-west-2", AccessKey: "AKID", SecretKey: "SECRET"})
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
}
