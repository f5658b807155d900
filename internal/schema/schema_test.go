package schema_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/fieldlog/internal/schema"
)

func TestDefault_CompilesAll(t *testing.T) {
	l, err := schema.Default()
	require.NoError(t, err)
	for _, name := range []string{schema.Signup, schema.Signin, schema.Profile, schema.Activity, schema.Engineer, schema.Notification, schema.Category} {
		_, ok := l.Get(name)
		assert.True(t, ok, "schema %s not loaded", name)
	}
	assert.Len(t, l.Names(), 7)
}

func TestValidate(t *testing.T) {
	l, err := schema.Default()
	require.NoError(t, err)
	ctx := context.Background()

	cases := []struct {
		name    string
		schema  string
		body    string
		wantErr bool
	}{
		{"ActivityOK", schema.Activity, `{"customer_name":"Acme","status":"executed","hours":[{"service_category_id":"c1","hours":2.5}]}`, false},
		{"ActivityNegativeHours", schema.Activity, `{"hours":[{"service_category_id":"c1","hours":-1}]}`, true},
		{"ActivityBadStatus", schema.Activity, `{"status":"done","hours":[]}`, true},
		{"ActivityMissingHours", schema.Activity, `{"customer_name":"Acme"}`, true},
		{"SignupShortPassword", schema.Signup, `{"email":"a@b.c","password":"short"}`, true},
		{"SignupOK", schema.Signup, `{"email":"a@b.c","password":"longenough"}`, false},
		{"EngineerBadRole", schema.Engineer, `{"employee_id":"E1","full_name":"A","email":"a@b.c","role":"root"}`, true},
		{"NotificationOK", schema.Notification, `{"message":"hi","recipient_type":"all"}`, false},
		{"NotificationBadScope", schema.Notification, `{"message":"hi","recipient_type":"team"}`, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := l.Validate(ctx, c.schema, []byte(c.body))
			if !c.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *schema.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Errors)
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	l, _ := schema.Default()
	err := l.Validate(context.Background(), "nope", []byte(`{}`))
	require.Error(t, err)
	var ve *schema.ValidationError
	assert.NotErrorAs(t, err, &ve, "unknown schema is not a validation failure")
}

func TestNewLoader_BadSchema(t *testing.T) {
	src := fstest.MapFS{"s/broken.json": {Data: []byte(`{"type":`)}}
	_, err := schema.NewLoader(src, "s")
	assert.Error(t, err)
}

func TestReload_KeepsCacheOnFailure(t *testing.T) {
	src := fstest.MapFS{"s/ok.json": {Data: []byte(`{"type":"object"}`)}}
	l, err := schema.NewLoader(src, "s")
	require.NoError(t, err)
	src["s/broken.json"] = &fstest.MapFile{Data: []byte(`{`)}
	require.Error(t, l.Reload())
	_, ok := l.Get("ok")
	assert.True(t, ok, "cache must survive a failed reload")
}
