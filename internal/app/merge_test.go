package app

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLayers_Precedence(t *testing.T) {
	profile := domain.Settings{"a": 1, "b": 1}
	general := domain.Settings{"b": 2, "c": 2}
	advanced := domain.Settings{"c": 3, "d": 3}

	got := MergeLayers(profile, general, advanced)

	want := domain.Settings{"a": 1, "b": 2, "c": 3, "d": 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergeLayers mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.Settings{"a": 1, "b": 1}, profile, "inputs must not be modified")
}

func TestMergeLayers_EdgeCases(t *testing.T) {
	assert.Empty(t, MergeLayers())
	assert.Empty(t, MergeLayers(nil, nil))

	got := MergeLayers(domain.Settings{"k": "v"}, domain.Settings{"k": nil})
	v, ok := got["k"]
	assert.True(t, ok)
	assert.Nil(t, v, "explicit nil in a higher layer wins")
}

func TestResolveStored_AbsentReturnsDefault(t *testing.T) {
	dflt := map[string]any{"viewMode": "timeGridWeek"}

	for _, v := range []domain.StoredValue{domain.Absent(), domain.Raw(""), domain.Decoded(nil), domain.Raw("null")} {
		got, err := ResolveStored(v, dflt)
		require.NoError(t, err)
		assert.Equal(t, reflect.ValueOf(dflt).Pointer(), reflect.ValueOf(got).Pointer(), "default must be returned as is")
	}
}

func TestResolveStored_FalsyDecodedReturnsDefault(t *testing.T) {
	dflt := domain.DefaultCalendarSettings()

	tests := []struct {
		name  string
		value domain.StoredValue
	}{
		{"false", domain.Decoded(false)},
		{"zero", domain.Decoded(0.0)},
		{"int zero", domain.Decoded(0)},
		{"empty string", domain.Decoded("")},
		{"encoded false", domain.Raw("false")},
		{"encoded zero", domain.Raw(" 0 ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStored(tt.value, dflt)
			require.NoError(t, err)
			assert.Equal(t, dflt, got)
		})
	}
}

func TestComposePageSettings_FalsySectionsUseDefaults(t *testing.T) {
	got, err := ComposePageSettings(map[string]domain.StoredValue{
		domain.PageKeyCalendar:           domain.Decoded(false),
		domain.PageKeyReportsUserDayWise: domain.Raw("0"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCalendarSettings(), got.Calendar)
	assert.Equal(t, domain.DefaultUserDayWiseSettings(), got.ReportsUserDayWise)
}

func TestResolveStored_DecodedReturnedUnchanged(t *testing.T) {
	stored := map[string]any{"logFormat": "2"}

	got, err := ResolveStored(domain.Decoded(stored), map[string]any{"logFormat": "1"})
	require.NoError(t, err)
	assert.Equal(t, reflect.ValueOf(stored).Pointer(), reflect.ValueOf(got).Pointer())
}

func TestResolveStored_RawIsDecoded(t *testing.T) {
	want := map[string]any{"viewMode": "dayGridMonth", "showInfo": false, "nested": map[string]any{"n": 1.0}}

	got, err := ResolveStored(domain.Raw(`{"viewMode":"dayGridMonth","showInfo":false,"nested":{"n":1}}`), map[string]any{})
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveStored mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveStored_DecodedMapIntoStruct(t *testing.T) {
	got, err := ResolveStored(domain.Decoded(map[string]any{"logFormat": "3", "groupMode": "2"}), domain.DefaultUserDayWiseSettings())
	require.NoError(t, err)
	assert.Equal(t, domain.UserDayWiseSettings{LogFormat: "3", GroupMode: "2"}, got)
}

func TestResolveStored_CorruptTextSurfaces(t *testing.T) {
	dflt := domain.DefaultCalendarSettings()

	got, err := ResolveStored(domain.Raw(`{"viewMode":`), dflt)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDataCorruption))
	assert.Equal(t, dflt, got)

	_, err = ResolveStored(domain.Raw(`"just a string"`), dflt)
	assert.True(t, domain.IsKind(err, domain.KindDataCorruption))
}

func TestComposePageSettings(t *testing.T) {
	ps, err := ComposePageSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCalendarSettings(), ps.Calendar)
	assert.Equal(t, domain.DefaultUserDayWiseSettings(), ps.ReportsUserDayWise)

	_, err = ComposePageSettings(map[string]domain.StoredValue{
		domain.PageKeyReportsUserDayWise: domain.Raw("]["),
	})
	var ae *domain.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, domain.PageKeyReportsUserDayWise, ae.Op)
}
