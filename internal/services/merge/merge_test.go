package merge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"inspectsync/internal/inspection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestMergeServerStateIntoForm(t *testing.T) {
	t.Run("Should never overwrite local values", func(t *testing.T) {
		local := inspection.Form{"bonnet": "foo"}
		server := decode(t, `{"exterior":{"bonnet":"bar"}}`)

		merged := MergeServerStateIntoForm(inspection.ModuleExterior, local, server)
		assert.Equal(t, "foo", merged["bonnet"])
	})

	t.Run("Should adopt server values for empty local fields", func(t *testing.T) {
		local := inspection.Form{"bonnet": ""}
		server := decode(t, `{"exterior":{"bonnet":"bar"}}`)

		merged := MergeServerStateIntoForm(inspection.ModuleExterior, local, server)
		assert.Equal(t, "bar", merged["bonnet"])
		assert.Equal(t, "", local["bonnet"], "input form must not change")
	})

	t.Run("Should resolve legacy aliases and nested paths", func(t *testing.T) {
		server := decode(t, `{"exteriorInspection":{"hood":"Dent","bumpers":{"front":"Scratch"},"photos":"a.jpg, b.jpg"}}`)

		merged := MergeServerStateIntoForm(inspection.ModuleExterior, nil, server)
		assert.Equal(t, "Dent", merged["bonnet"])
		assert.Equal(t, "Scratch", merged["frontBumper"])
		assert.Equal(t, []any{"a.jpg", "b.jpg"}, merged["exteriorImages"])
	})

	t.Run("Should prefer the canonical name over aliases", func(t *testing.T) {
		server := decode(t, `{"engine":{"engineSound":"Normal","sound":"Knocking"}}`)

		merged := MergeServerStateIntoForm(inspection.ModuleEngine, nil, server)
		assert.Equal(t, "Normal", merged["engineSound"])
	})

	t.Run("Should normalize free text yes and no", func(t *testing.T) {
		tests := []struct {
			raw  string
			want string
		}{
			{`"yes"`, Yes}, {`"Y"`, Yes}, {`"true"`, Yes}, {`"1"`, Yes}, {`true`, Yes}, {`1`, Yes},
			{`"no"`, No}, {`"n"`, No}, {`false`, No}, {`0`, No},
		}
		for _, tt := range tests {
			server := decode(t, `{"rcDetails":{"rcAvailable":`+tt.raw+`}}`)
			merged := MergeServerStateIntoForm(inspection.ModuleRCDetails, nil, server)
			assert.Equal(t, tt.want, merged["rcAvailable"], tt.raw)
		}
	})

	t.Run("Should leave unresolvable values alone", func(t *testing.T) {
		server := decode(t, `{"rcDetails":{"rcAvailable":"maybe"},"vehicle":{"fuelType":"steam"}}`)

		merged := MergeServerStateIntoForm(inspection.ModuleRCDetails, inspection.Form{}, server)
		assert.NotContains(t, merged, "rcAvailable")

		merged = MergeServerStateIntoForm(inspection.ModuleVehicleIdentity, inspection.Form{}, server)
		assert.NotContains(t, merged, "fuelType")
	})

	t.Run("Should canonicalize enums and numbers", func(t *testing.T) {
		server := decode(t, `{"vehicleDetails":{"fuel":"DIESEL","kmsDriven":"45,000","year":2019}}`)

		merged := MergeServerStateIntoForm(inspection.ModuleVehicleIdentity, nil, server)
		assert.Equal(t, "Diesel", merged["fuelType"])
		assert.Equal(t, 45000.0, merged["odometer"])
		assert.Equal(t, 2019.0, merged["manufacturingYear"])
	})

	t.Run("Should read flat legacy documents", func(t *testing.T) {
		server := decode(t, `{"brand":"Maruti","modelName":"Swift"}`)

		merged := MergeServerStateIntoForm(inspection.ModuleVehicleIdentity, nil, server)
		assert.Equal(t, "Maruti", merged["make"])
		assert.Equal(t, "Swift", merged["model"])
	})

	t.Run("Should keep local fields the server does not know", func(t *testing.T) {
		local := inspection.Form{"customNote": "keep"}
		merged := MergeServerStateIntoForm(inspection.ModuleEngine, local, decode(t, `{"engine":{"smoke":"White"}}`))
		assert.Equal(t, "keep", merged["customNote"])
		assert.Equal(t, "White", merged["smoke"])
	})

	t.Run("Should not panic on odd shapes", func(t *testing.T) {
		odd := []string{
			`{}`,
			`{"exterior":"not an object"}`,
			`{"exterior":null}`,
			`{"exterior":{"bumpers":"flat"}}`,
			`{"exterior":{"bonnet":{"nested":true}}}`,
			`{"exterior":[1,2,3]}`,
		}
		for _, raw := range odd {
			server := decode(t, raw)
			assert.NotPanics(t, func() {
				MergeServerStateIntoForm(inspection.ModuleExterior, inspection.Form{"roof": "OK"}, server)
			}, raw)
		}
		assert.NotPanics(t, func() {
			MergeServerStateIntoForm(inspection.ModuleKey("unknown"), nil, nil)
		})
	})

	t.Run("Should wrap list sections under the module name", func(t *testing.T) {
		server := decode(t, `{"defects":[{"part":"door","type":"dent"}]}`)

		merged := MergeServerStateIntoForm(inspection.ModuleDefects, nil, server)
		assert.Equal(t, 1, merged.Len("defects"))
	})
}

func TestIsCompleted(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{"Root flag", `{"functionsCompleted":true}`, true},
		{"Nested root flag", `{"completion":{"functions":"yes"}}`, true},
		{"Section flag", `{"functionalChecks":{"isCompleted":1}}`, true},
		{"Section status", `{"functions":{"status":"Completed"}}`, true},
		{"Explicit false", `{"functionsCompleted":false,"functions":{"completed":true}}`, false},
		{"Missing", `{"frames":{"completed":true}}`, false},
		{"Garbage", `{"functionsCompleted":"whatever"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.doc), &doc))
			assert.Equal(t, tt.want, IsCompleted(inspection.ModuleFunctions, doc))
		})
	}
}

type fetcherFunc func(ctx context.Context, entityID string) (map[string]any, error)

func (f fetcherFunc) FetchInspection(ctx context.Context, entityID string) (map[string]any, error) {
	return f(ctx, entityID)
}

func TestReader(t *testing.T) {
	ctx := context.Background()

	t.Run("Should unwrap envelopes and split modules", func(t *testing.T) {
		r := NewReader(fetcherFunc(func(_ context.Context, id string) (map[string]any, error) {
			return decode(t, `{"data":{"sellCarId":"`+id+`","framesCompleted":"done","testDrive":{"status":"yes","experience":"Smooth"}}}`), nil
		}))

		snap, err := r.Snapshot(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, "42", snap.Document["sellCarId"])
		assert.True(t, snap.IsCompleted(inspection.ModuleFrames))
		assert.False(t, snap.IsCompleted(inspection.ModuleEngine))
		assert.True(t, snap.HasModule(inspection.ModuleTestDrive))

		form := snap.Form(inspection.ModuleTestDrive)
		assert.Equal(t, TestDriveCompleted, form["testDriveStatus"])
		assert.Equal(t, "Smooth", form["drivingExperience"])
	})

	t.Run("Should hydrate and keep local values on failure", func(t *testing.T) {
		r := NewReader(fetcherFunc(func(context.Context, string) (map[string]any, error) {
			return nil, errors.New("connection refused")
		}))

		local := inspection.Form{"smoke": "No"}
		got, err := r.Hydrate(ctx, "42", inspection.ModuleEngine, local)
		assert.Error(t, err)
		assert.Equal(t, local, got)
	})

	t.Run("Should tolerate a nil snapshot", func(t *testing.T) {
		var snap *Snapshot
		assert.False(t, snap.IsCompleted(inspection.ModuleFrames))
		assert.Equal(t, inspection.Form{"a": "b"}, snap.Merge(inspection.ModuleFrames, inspection.Form{"a": "b"}))
	})
}
