package progress

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"inspectsync/internal/inspection"
	"inspectsync/internal/kvstore"
	"inspectsync/internal/services/drafts"
	"inspectsync/internal/services/merge"
	"inspectsync/internal/services/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeModuleProgress(t *testing.T) {
	t.Run("Should count an aborted test drive", func(t *testing.T) {
		local := inspection.Form{
			"testDriveStatus":   "Not Completed",
			"drivingExperience": "Rough",
			"problems":          []any{"vibration"},
		}

		p := ComputeModuleProgress(inspection.ModuleTestDrive, local, RemoteSignal{})
		assert.Equal(t, 67, p.Percent)
		assert.True(t, p.HasExplicitFieldCounts())
		left, ok := p.RequiredRemaining()
		require.True(t, ok)
		assert.Equal(t, 1, left)
		opt, ok := p.OptionalRemaining()
		require.True(t, ok)
		assert.Equal(t, 1, opt)
		assert.Equal(t, SourceLocal, p.Source)
		assert.Equal(t, []string{"incompleteReason"}, Missing(inspection.ModuleTestDrive, local))
	})

	t.Run("Should switch test drive variant on status", func(t *testing.T) {
		local := inspection.Form{
			"testDriveStatus":   "Completed",
			"drivingExperience": "Smooth",
			"problems":          []any{"none"},
		}

		p := ComputeModuleProgress(inspection.ModuleTestDrive, local, RemoteSignal{})
		assert.Equal(t, 7, p.Counts.TotalRequired)
		assert.Equal(t, 29, p.Percent)
	})

	t.Run("Should read loose encodings of a finished test drive", func(t *testing.T) {
		for _, status := range []any{"Yes", "y", "1", "done", "completed", true, 1.0} {
			local := inspection.Form{"testDriveStatus": status}
			p := ComputeModuleProgress(inspection.ModuleTestDrive, local, RemoteSignal{})
			assert.Equal(t, 7, p.Counts.TotalRequired, "status %v", status)
		}
		for _, status := range []any{"No", "pending", "Not Completed", false, "maybe", nil} {
			local := inspection.Form{"testDriveStatus": status}
			p := ComputeModuleProgress(inspection.ModuleTestDrive, local, RemoteSignal{})
			assert.Equal(t, 3, p.Counts.TotalRequired, "status %v", status)
		}
	})

	t.Run("Should never decrease when a required field is filled", func(t *testing.T) {
		fields := []string{"engineSound", "smoke", "oilLeakage", "coolant", "battery", "engineVideo"}
		form := inspection.Form{}
		last := ComputeModuleProgress(inspection.ModuleEngine, form, RemoteSignal{}).Percent
		assert.Equal(t, 0, last)

		for _, field := range fields {
			form[field] = "OK"
			cur := ComputeModuleProgress(inspection.ModuleEngine, form, RemoteSignal{}).Percent
			assert.GreaterOrEqual(t, cur, last, field)
			last = cur
		}
		assert.Equal(t, 100, last)
	})

	t.Run("Should fall back to the completion flag for flag-only modules", func(t *testing.T) {
		p := ComputeModuleProgress(inspection.ModuleFunctions, inspection.Form{"horn": "Yes"}, RemoteSignal{})
		assert.Equal(t, 0, p.Percent)
		assert.False(t, p.HasExplicitFieldCounts())
		_, ok := p.RequiredRemaining()
		assert.False(t, ok)

		p = ComputeModuleProgress(inspection.ModuleFrames, nil, RemoteSignal{Completed: true})
		assert.Equal(t, 100, p.Percent)
		_, ok = p.OptionalRemaining()
		assert.False(t, ok)
	})

	t.Run("Should prefer local over remote", func(t *testing.T) {
		remote := RemoteSignal{Form: inspection.Form{"rcAvailable": "Yes", "registrationDate": "2019-01-01", "chassisNumber": "X", "engineNumber": "Y"}}

		p := ComputeModuleProgress(inspection.ModuleRCDetails, inspection.Form{"rcAvailable": "Yes"}, remote)
		assert.Equal(t, 25, p.Percent)
		assert.Equal(t, SourceLocal, p.Source)

		p = ComputeModuleProgress(inspection.ModuleRCDetails, nil, remote)
		assert.Equal(t, 100, p.Percent)
		assert.Equal(t, SourceRemote, p.Source)
	})

	t.Run("Should use the flag when no field data exists", func(t *testing.T) {
		p := ComputeModuleProgress(inspection.ModuleExterior, nil, RemoteSignal{Completed: true})
		assert.Equal(t, 100, p.Percent)
		assert.False(t, p.HasExplicitFieldCounts())

		p = ComputeModuleProgress(inspection.ModuleExterior, nil, RemoteSignal{})
		assert.Equal(t, 0, p.Percent)
		assert.Equal(t, SourceNone, p.Source)
	})

	t.Run("Should handle garbage without panicking", func(t *testing.T) {
		assert.NotPanics(t, func() {
			ComputeModuleProgress(inspection.ModuleTestDrive, inspection.Form{"testDriveStatus": 42.0, "problems": map[string]any{}}, RemoteSignal{})
			ComputeModuleProgress(inspection.ModuleKey("bogus"), nil, RemoteSignal{})
		})
	})
}

func TestDefects(t *testing.T) {
	tests := []struct {
		name  string
		form  inspection.Form
		ready bool
	}{
		{"Nothing recorded", inspection.Form{}, false},
		{"No defects found", inspection.Form{"noDefects": true}, true},
		{"Defects recorded", inspection.Form{"defects": []any{map[string]any{"part": "door"}}}, true},
		{"Explicitly false", inspection.Form{"noDefects": false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeModuleProgress(inspection.ModuleDefects, tt.form, RemoteSignal{})
			assert.Equal(t, tt.ready, Satisfied(p))
		})
	}
}

func complete(module inspection.ModuleKey) ModuleProgress {
	return ModuleProgress{Module: module, Percent: 100, Counts: FieldCounted(4, 4, 0, 0)}
}

func TestComputeOverallReadiness(t *testing.T) {
	t.Run("Should accept an optional-only module with nothing left", func(t *testing.T) {
		var all []ModuleProgress
		for _, m := range inspection.ChecklistModules {
			if m == inspection.ModuleRefurbishmentCost {
				continue
			}
			all = append(all, complete(m))
		}
		all = append(all, ModuleProgress{Module: inspection.ModuleRefurbishmentCost, Percent: 80, Counts: FieldCounted(0, 0, 5, 5)})

		assert.Len(t, all, 9)
		assert.True(t, ComputeOverallReadiness(all))
	})

	t.Run("Should block on optional fields still open", func(t *testing.T) {
		all := []ModuleProgress{
			complete(inspection.ModuleEngine),
			{Module: inspection.ModuleRefurbishmentCost, Percent: 80, Counts: FieldCounted(0, 0, 5, 4)},
		}
		assert.False(t, ComputeOverallReadiness(all))
	})

	t.Run("Should accept defects with entries below 100 percent", func(t *testing.T) {
		all := []ModuleProgress{
			complete(inspection.ModuleEngine),
			{Module: inspection.ModuleDefects, Percent: 0, Entries: 2, Counts: FieldCounted(1, 0, 0, 0)},
		}
		assert.True(t, ComputeOverallReadiness(all))
	})

	t.Run("Should require flag-only modules to be complete", func(t *testing.T) {
		all := []ModuleProgress{
			complete(inspection.ModuleEngine),
			{Module: inspection.ModuleFrames, Percent: 0, Counts: FlagOnly()},
		}
		assert.False(t, ComputeOverallReadiness(all))
	})

	t.Run("Should not be ready without modules", func(t *testing.T) {
		assert.False(t, ComputeOverallReadiness(nil))
	})
}

type remoteFunc func(ctx context.Context, entityID string) (*merge.Snapshot, error)

func (f remoteFunc) Snapshot(ctx context.Context, entityID string) (*merge.Snapshot, error) {
	return f(ctx, entityID)
}

func TestChecklist(t *testing.T) {
	ctx := context.Background()

	t.Run("Should combine drafts, queue and server state", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		repo := drafts.NewRepository(kv)
		uploads := queue.New(kv, queue.DefaultName)

		require.NoError(t, repo.Save(ctx, "42", inspection.ModuleEngine, map[string]any{"smoke": "No"}))
		require.NoError(t, uploads.Enqueue(ctx, queue.NewJob("42", inspection.ModuleFunctions, json.RawMessage(`{}`))))
		require.NoError(t, uploads.Enqueue(ctx, queue.NewJob("42", inspection.ModuleDefects, json.RawMessage(`{"noDefects":true}`))))
		require.NoError(t, uploads.Enqueue(ctx, queue.NewJob("other", inspection.ModuleFrames, json.RawMessage(`{}`))))

		remote := remoteFunc(func(context.Context, string) (*merge.Snapshot, error) {
			var doc map[string]any
			require.NoError(t, json.Unmarshal([]byte(`{"framesCompleted":true,"engine":{"engineSound":"Normal"},"rcDetails":{"rcAvailable":"y","regDate":"2019","chassisNo":"C","engineNo":"E"}}`), &doc))
			return merge.NewSnapshot("42", doc), nil
		})

		report := NewChecklist(repo, remote, uploads).Build(ctx, "42")
		require.Len(t, report.Modules, len(inspection.ChecklistModules))
		assert.False(t, report.RemoteUnavailable)
		assert.False(t, report.Ready)

		byModule := map[inspection.ModuleKey]ModuleProgress{}
		for _, p := range report.Modules {
			byModule[p.Module] = p
		}

		engine := byModule[inspection.ModuleEngine]
		assert.Equal(t, SourceLocal, engine.Source)
		assert.Equal(t, 17, engine.Percent)

		assert.Equal(t, 100, byModule[inspection.ModuleRCDetails].Percent)
		assert.Equal(t, 100, byModule[inspection.ModuleFrames].Percent)

		functions := byModule[inspection.ModuleFunctions]
		assert.True(t, functions.Pending)
		assert.Equal(t, 100, functions.Percent)

		defects := byModule[inspection.ModuleDefects]
		assert.True(t, defects.Pending)
		assert.True(t, Satisfied(defects))
	})

	t.Run("Should degrade to local state when the server is unreachable", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		repo := drafts.NewRepository(kv)
		require.NoError(t, repo.Save(ctx, "42", inspection.ModuleVehicleIdentity, map[string]any{"make": "Tata", "model": "Nexon"}))

		remote := remoteFunc(func(context.Context, string) (*merge.Snapshot, error) {
			return nil, errors.New("connection refused")
		})

		report := NewChecklist(repo, remote).Build(ctx, "42")
		assert.True(t, report.RemoteUnavailable)
		assert.False(t, report.Ready)
		assert.Equal(t, 29, report.Identity.Percent)
		for _, p := range report.Modules {
			assert.LessOrEqual(t, p.Percent, 100)
		}
	})

	t.Run("Should be ready when every module is satisfied", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		repo := drafts.NewRepository(kv)
		forms := map[inspection.ModuleKey]map[string]any{
			inspection.ModuleRCDetails:          {"rcAvailable": "Yes", "registrationDate": "2019-01-01", "chassisNumber": "C", "engineNumber": "E"},
			inspection.ModuleExterior:           {"bonnet": "OK", "roof": "OK", "frontBumper": "OK", "rearBumper": "OK", "leftFender": "OK", "rightFender": "OK", "doors": "OK", "exteriorImages": []any{"a.jpg"}},
			inspection.ModuleElectricalInterior: {"powerWindows": "OK", "centralLocking": "OK", "dashboard": "OK", "seats": "OK", "airbags": "Yes", "musicSystem": "OK"},
			inspection.ModuleTestDrive:          {"testDriveStatus": "Not Completed", "drivingExperience": "Rough", "problems": []any{"noise"}, "incompleteReason": "Rain"},
			inspection.ModuleEngine:             {"engineSound": "OK", "smoke": "No", "oilLeakage": "No", "coolant": "OK", "battery": "OK", "engineVideo": "v.mp4"},
			inspection.ModuleRefurbishmentCost:  {"bodyWork": 0, "mechanical": 1500, "electrical": 0, "tyres": 4000, "interior": 0},
			inspection.ModuleDefects:            {"noDefects": true},
		}
		for m, f := range forms {
			require.NoError(t, repo.Save(ctx, "42", m, f))
		}

		remote := remoteFunc(func(context.Context, string) (*merge.Snapshot, error) {
			return merge.NewSnapshot("42", map[string]any{"functionsCompleted": true, "framesCompleted": "yes"}), nil
		})

		report := NewChecklist(repo, remote).Build(ctx, "42")
		assert.True(t, report.Ready)
	})
}
