package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_PhoneValues(t *testing.T) {
	r := Record{
		UID: "u1",
		Tel: []Phone{{Value: "555-1111"}, {Value: "555-2222", Type: []string{"work"}}},
	}
	assert.Equal(t, []string{"555-1111", "555-2222"}, r.PhoneValues())
	assert.Empty(t, Record{UID: "u2"}.PhoneValues())
}

func TestRecord_CloneIsDeep(t *testing.T) {
	orig := Record{
		UID:            "u1",
		GivenName:      []string{"Ada"},
		Tel:            []Phone{{Value: "555-1111", Type: []string{"mobile"}}},
		ShortTelephone: []string{"1111"},
		Extra:          map[string]any{"fbUid": "123"},
	}

	c := orig.Clone()
	c.GivenName[0] = "Grace"
	c.Tel[0].Value = "555-9999"
	c.Tel[0].Type[0] = "home"
	c.ShortTelephone[0] = "9999"
	c.Extra["fbUid"] = "456"

	assert.Equal(t, "Ada", orig.GivenName[0])
	assert.Equal(t, "555-1111", orig.Tel[0].Value)
	assert.Equal(t, "mobile", orig.Tel[0].Type[0])
	assert.Equal(t, "1111", orig.ShortTelephone[0])
	assert.Equal(t, "123", orig.Extra["fbUid"])
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr string
	}{
		{name: "valid", record: Record{UID: "u1", Tel: []Phone{{Value: "1"}}}},
		{name: "missing uid", record: Record{}, wantErr: "uid is required"},
		{name: "empty tel", record: Record{UID: "u1", Tel: []Phone{{Value: ""}}}, wantErr: "tel[0] has empty value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	r := Record{
		UID:            "u1",
		Name:           []string{"Ada Lovelace"},
		Tel:            []Phone{{Value: "555-1111", Carrier: "acme"}},
		ShortTelephone: []string{"1111"},
	}

	data, err := Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"uid":"u1","name":["Ada Lovelace"],"tel":[{"value":"555-1111","carrier":"acme"}],"shortTelephone":["1111"]}`, string(data))

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := Unmarshal([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal contact")
}

func TestDecodeYAML_Shapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		uids []string
	}{
		{
			name: "single mapping",
			in:   "uid: u1\ntel:\n  - value: 555-1111\n",
			uids: []string{"u1"},
		},
		{
			name: "sequence",
			in:   "- uid: u1\n- uid: u2\n  shortTelephone: [\"2222\"]\n",
			uids: []string{"u1", "u2"},
		},
		{
			name: "document stream",
			in:   "uid: u1\n---\n- uid: u2\n- uid: u3\n",
			uids: []string{"u1", "u2", "u3"},
		},
		{
			name: "json",
			in:   `[{"uid":"u1","tel":[{"value":"555"}]}]`,
			uids: []string{"u1"},
		},
		{
			name: "empty",
			in:   "",
			uids: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeYAML([]byte(tt.in))
			require.NoError(t, err)
			uids := make([]string, 0, len(records))
			for _, r := range records {
				uids = append(uids, r.UID)
			}
			assert.Equal(t, tt.uids, uids)
		})
	}
}

func TestDecodeYAML_Fields(t *testing.T) {
	records, err := DecodeYAML([]byte(`
uid: u1
givenName: [Ada]
tel:
  - value: 555-1111
    type: [mobile]
shortTelephone: ["1111"]
`))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, []string{"Ada"}, r.GivenName)
	assert.Equal(t, []Phone{{Value: "555-1111", Type: []string{"mobile"}}}, r.Tel)
	assert.Equal(t, []string{"1111"}, r.ShortTelephone)
}

func TestDecodeYAML_Scalar(t *testing.T) {
	_, err := DecodeYAML([]byte("just a string\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected mapping or sequence")
}
