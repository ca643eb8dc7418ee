package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStageProgressEmpty(t *testing.T) {
	for _, raw := range []string{"", "null", "{}"} {
		sp, err := DecodeStageProgress([]byte(raw))
		require.NoError(t, err, "raw=%q", raw)
		assert.Empty(t, sp.Sections())
	}
}

func TestDecodeStageProgressIgnoresUnknownKeys(t *testing.T) {
	raw := `{"stage1":{"tech_stack":"go","completed":true},"legacy":{"x":1}}`

	sp, err := DecodeStageProgress([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, sp.Stage1)
	assert.Equal(t, "go", sp.Stage1.TechStack)
	assert.Equal(t, 1, sp.CompletedStages())
}

func TestDecodeStageProgressRejectsBadSection(t *testing.T) {
	_, err := DecodeStageProgress([]byte(`{"stage4":{"closing_probability":140}}`))
	assert.Error(t, err)

	_, err = DecodeStageProgress([]byte(`{"stage3":{"approval_status":"maybe"}}`))
	assert.Error(t, err)

	_, err = DecodeStageProgress([]byte(`{"stage2":`))
	assert.Error(t, err)
}

func TestStageProgressSection(t *testing.T) {
	sp := StageProgress{
		Stage2: &Stage2Data{BudgetRange: "50k", Completed: true},
		Stage4: &Stage4Data{TotalPrice: 1200, ApprovalStatus: "in_review"},
	}

	assert.Nil(t, sp.Section(1))
	s2 := sp.Section(2)
	require.NotNil(t, s2)
	assert.Equal(t, 2, s2.StageNumber())
	assert.True(t, s2.IsCompleted())
	assert.Equal(t, 4, sp.Section(4).StageNumber())
	assert.NoError(t, sp.Validate())
}

func TestStageProgressOmitsEmptySections(t *testing.T) {
	body, err := json.Marshal(StageProgress{Stage5: &Stage5Data{SessionDuration: "2h"}})
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(body, &data))
	assert.Len(t, data, 1)
	assert.Contains(t, data, "stage5")
}

func TestValidStage(t *testing.T) {
	assert.False(t, ValidStage(0))
	assert.True(t, ValidStage(1))
	assert.True(t, ValidStage(5))
	assert.False(t, ValidStage(6))
}

func TestActorLabel(t *testing.T) {
	assert.Equal(t, "ana@acme.io", Actor{UserID: "u-1", Email: "ana@acme.io"}.Label())
	assert.Equal(t, "u-1", Actor{UserID: "u-1"}.Label())
}

func TestNewStageActivity(t *testing.T) {
	a := NewStageActivity("p-1", 3, Actor{UserID: "u-1"})

	assert.Equal(t, ActivityStageUpdated, a.ActivityType)
	assert.Equal(t, "Prospecto movido a etapa 3", a.Description)
	require.NotNil(t, a.Stage)
	assert.Equal(t, 3, *a.Stage)
	assert.Equal(t, "u-1", a.CreatedBy)
}

func TestSalvageStageProgressDropsOnlyBadSections(t *testing.T) {
	raw := `{"stage1":{"tech_stack":"go"},"stage2":{"budget_range":5000},"stage4":{"closing_probability":150},"stage5":{"session_duration":"2h"}}`

	sp, problems := SalvageStageProgress([]byte(raw))

	require.Len(t, problems, 2)
	assert.Contains(t, problems[0].Error(), "stage2")
	assert.Contains(t, problems[1].Error(), "closing_probability")
	require.NotNil(t, sp.Stage1)
	assert.Equal(t, "go", sp.Stage1.TechStack)
	assert.Nil(t, sp.Stage2)
	assert.Nil(t, sp.Stage4)
	require.NotNil(t, sp.Stage5)
	assert.Equal(t, "2h", sp.Stage5.SessionDuration)
}

func TestSalvageStageProgressNotAnObject(t *testing.T) {
	sp, problems := SalvageStageProgress([]byte(`[1,2]`))

	require.Len(t, problems, 1)
	assert.Empty(t, sp.Sections())

	sp, problems = SalvageStageProgress([]byte(`null`))
	assert.Empty(t, problems)
	assert.Empty(t, sp.Sections())
}

func TestNullableJSON(t *testing.T) {
	var u ProspectUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"lost_reason":null,"estimated_value":1500}`), &u))

	assert.True(t, u.LostReason.IsNull())
	require.True(t, u.EstimatedValue.Set)
	assert.Equal(t, 1500.0, *u.EstimatedValue.Value)
	assert.False(t, u.NextStep.Set)
	assert.False(t, u.Empty())

	body, err := json.Marshal(ProspectUpdate{LostReason: Null[string](), NextStep: Some("call CFO")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"lost_reason":null,"next_step":"call CFO"}`, string(body))
}
