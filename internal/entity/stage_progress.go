package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StageSection is one stage's questionnaire inside StageProgress.
type StageSection interface {
	StageNumber() int
	IsCompleted() bool
	Validate() error
}

// StageProgress holds the per-stage qualification data, keyed stage1..stage5.
// Storage does not enforce its shape; Validate runs wherever it crosses a
// boundary.
type StageProgress struct {
	Stage1 *Stage1Data `json:"stage1,omitempty"`
	Stage2 *Stage2Data `json:"stage2,omitempty"`
	Stage3 *Stage3Data `json:"stage3,omitempty"`
	Stage4 *Stage4Data `json:"stage4,omitempty"`
	Stage5 *Stage5Data `json:"stage5,omitempty"`
}

type Stage1Data struct {
	BusinessAnalysis  string `json:"business_analysis"`
	DigitalChannels   string `json:"digital_channels"`
	TechStack         string `json:"tech_stack"`
	PainHypothesis    string `json:"pain_hypothesis"`
	PotentialUseCase  string `json:"potential_use_case"`
	DirectCompetitors string `json:"direct_competitors"`
	DecisionMaker     string `json:"decision_maker"`
	Completed         bool   `json:"completed"`
}

type ProcessMapping struct {
	Process          string  `json:"process"`
	CurrentFriction  string  `json:"current_friction"`
	ImpactScore      float64 `json:"impact_score"`
	WorthIntervening bool    `json:"worth_intervening"`
	Priority         int     `json:"priority"`
}

type Stage2Data struct {
	BudgetRange          string           `json:"budget_range"`
	AuthorityMap         string           `json:"authority_map"`
	NeedUrgency          string           `json:"need_urgency"`
	Timeline             string           `json:"timeline"`
	CulturalFitScore     float64          `json:"cultural_fit_score"`
	FrictionArea         string           `json:"friction_area"`
	CriticalProcesses    []ProcessMapping `json:"critical_processes"`
	SecondaryPainPoints  []string         `json:"secondary_pain_points"`
	UrgencyScore         float64          `json:"urgency_score"`
	UrgencyJustification string           `json:"urgency_justification"`
	MeetingTranscript    *string          `json:"meeting_transcript,omitempty"`
	FollowUpNotes        string           `json:"follow_up_notes"`
	QualificationScore   float64          `json:"qualification_score"`
	Completed            bool             `json:"completed"`
}

type ProjectPhase struct {
	Name        string `json:"name"`
	Timeline    string `json:"timeline"`
	Description string `json:"description"`
}

type SolutionMapping struct {
	Process            string `json:"process"`
	ProposedSolution   string `json:"proposed_solution"`
	QuantifiedBenefit  string `json:"quantified_benefit"`
	EstimatedROI       string `json:"estimated_roi"`
	ImplementationTime string `json:"implementation_time"`
}

type Stage3Data struct {
	ProjectPhases         []ProjectPhase    `json:"project_phases"`
	SolutionsTable        []SolutionMapping `json:"solutions_table"`
	TechnicalDependencies string            `json:"technical_dependencies"`
	SuccessMetrics        string            `json:"success_metrics"`
	ApprovalStatus        string            `json:"approval_status"` // approved, pending, rejected
	SentDate              *string           `json:"sent_date,omitempty"`
	ClientFeedback        *string           `json:"client_feedback,omitempty"`
	RoadmapVersions       int               `json:"roadmap_versions"`
	Completed             bool              `json:"completed"`
}

type ProposalAlternative struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

type Stage4Data struct {
	TotalPrice           float64               `json:"total_price"`
	PaymentStructure     string                `json:"payment_structure"`
	SpecificDeliverables []string              `json:"specific_deliverables"`
	CommercialConditions string                `json:"commercial_conditions"`
	ProposalAlternatives []ProposalAlternative `json:"proposal_alternatives"`
	ApprovalStatus       string                `json:"approval_status"` // approved, in_review, rejected
	AdvancePaid          bool                  `json:"advance_paid"`
	AdvanceAmount        *float64              `json:"advance_amount,omitempty"`
	AdvanceDate          *string               `json:"advance_date,omitempty"`
	ClosingProbability   float64               `json:"closing_probability"`
	DecisionDeadline     *string               `json:"decision_deadline,omitempty"`
	Completed            bool                  `json:"completed"`
}

type Stage5Data struct {
	TechnicalSessionDate   *string  `json:"technical_session_date,omitempty"`
	SessionDuration        string   `json:"session_duration"`
	MeetingLink            *string  `json:"meeting_link,omitempty"`
	Participants           []string `json:"participants"`
	WorkflowDiagrams       string   `json:"workflow_diagrams"`
	ToolsToIntegrate       []string `json:"tools_to_integrate"`
	TechnicalRestrictions  string   `json:"technical_restrictions"`
	ValidatedDeliverables  []string `json:"validated_deliverables"`
	ProposedArchitecture   string   `json:"proposed_architecture"`
	TechnicalApproval      bool     `json:"technical_approval"`
	ReadyForImplementation bool     `json:"ready_for_implementation"`
	Completed              bool     `json:"completed"`
}

func (*Stage1Data) StageNumber() int { return 1 }
func (*Stage2Data) StageNumber() int { return 2 }
func (*Stage3Data) StageNumber() int { return 3 }
func (*Stage4Data) StageNumber() int { return 4 }
func (*Stage5Data) StageNumber() int { return 5 }

func (s *Stage1Data) IsCompleted() bool { return s.Completed }
func (s *Stage2Data) IsCompleted() bool { return s.Completed }
func (s *Stage3Data) IsCompleted() bool { return s.Completed }
func (s *Stage4Data) IsCompleted() bool { return s.Completed }
func (s *Stage5Data) IsCompleted() bool { return s.Completed }

func (s *Stage1Data) Validate() error { return nil }

func (s *Stage2Data) Validate() error {
	if s.CulturalFitScore < 0 || s.UrgencyScore < 0 || s.QualificationScore < 0 {
		return errors.New("stage2: scores must be non-negative")
	}
	for i, p := range s.CriticalProcesses {
		if p.ImpactScore < 0 {
			return fmt.Errorf("stage2: critical_processes[%d].impact_score must be non-negative", i)
		}
	}
	return nil
}

func (s *Stage3Data) Validate() error {
	switch s.ApprovalStatus {
	case "", "approved", "pending", "rejected":
	default:
		return fmt.Errorf("stage3: unknown approval_status %q", s.ApprovalStatus)
	}
	if s.RoadmapVersions < 0 {
		return errors.New("stage3: roadmap_versions must be non-negative")
	}
	return nil
}

func (s *Stage4Data) Validate() error {
	switch s.ApprovalStatus {
	case "", "approved", "in_review", "rejected":
	default:
		return fmt.Errorf("stage4: unknown approval_status %q", s.ApprovalStatus)
	}
	if s.TotalPrice < 0 {
		return errors.New("stage4: total_price must be non-negative")
	}
	if s.AdvanceAmount != nil && *s.AdvanceAmount < 0 {
		return errors.New("stage4: advance_amount must be non-negative")
	}
	if s.ClosingProbability < 0 || s.ClosingProbability > 100 {
		return errors.New("stage4: closing_probability must be between 0 and 100")
	}
	for i, alt := range s.ProposalAlternatives {
		if alt.Price < 0 {
			return fmt.Errorf("stage4: proposal_alternatives[%d].price must be non-negative", i)
		}
	}
	return nil
}

func (s *Stage5Data) Validate() error { return nil }

// Sections returns the present sections in stage order.
func (sp StageProgress) Sections() []StageSection {
	var out []StageSection
	if sp.Stage1 != nil {
		out = append(out, sp.Stage1)
	}
	if sp.Stage2 != nil {
		out = append(out, sp.Stage2)
	}
	if sp.Stage3 != nil {
		out = append(out, sp.Stage3)
	}
	if sp.Stage4 != nil {
		out = append(out, sp.Stage4)
	}
	if sp.Stage5 != nil {
		out = append(out, sp.Stage5)
	}
	return out
}

// Section returns the section for stage, or nil when it has not been filled.
func (sp StageProgress) Section(stage int) StageSection {
	for _, s := range sp.Sections() {
		if s.StageNumber() == stage {
			return s
		}
	}
	return nil
}

func (sp StageProgress) Validate() error {
	for _, s := range sp.Sections() {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CompletedStages counts sections flagged completed.
func (sp StageProgress) CompletedStages() int {
	n := 0
	for _, s := range sp.Sections() {
		if s.IsCompleted() {
			n++
		}
	}
	return n
}

// DecodeStageProgress reads the stored document. Null or empty input is an
// empty progress; unknown keys are ignored.
func DecodeStageProgress(raw []byte) (StageProgress, error) {
	var sp StageProgress
	if len(raw) == 0 || string(raw) == "null" {
		return sp, nil
	}
	if err := json.Unmarshal(raw, &sp); err != nil {
		return StageProgress{}, fmt.Errorf("decode stage_progress: %w", err)
	}
	if err := sp.Validate(); err != nil {
		return StageProgress{}, err
	}
	return sp, nil
}

// SalvageStageProgress is the read-side decoder for stored rows. Sections
// that do not parse or validate are dropped and reported instead of failing
// the whole document.
func SalvageStageProgress(raw []byte) (StageProgress, []error) {
	var sp StageProgress
	if len(raw) == 0 || string(raw) == "null" {
		return sp, nil
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return sp, []error{fmt.Errorf("decode stage_progress: %w", err)}
	}

	var problems []error
	salvageSection(sections, "stage1", &sp.Stage1, &problems)
	salvageSection(sections, "stage2", &sp.Stage2, &problems)
	salvageSection(sections, "stage3", &sp.Stage3, &problems)
	salvageSection(sections, "stage4", &sp.Stage4, &problems)
	salvageSection(sections, "stage5", &sp.Stage5, &problems)
	return sp, problems
}

func salvageSection[T any, PT interface {
	*T
	StageSection
}](sections map[string]json.RawMessage, key string, dst *PT, problems *[]error) {
	body, ok := sections[key]
	if !ok || string(body) == "null" {
		return
	}
	section := PT(new(T))
	if err := json.Unmarshal(body, section); err != nil {
		*problems = append(*problems, fmt.Errorf("%s: %w", key, err))
		return
	}
	if err := section.Validate(); err != nil {
		*problems = append(*problems, err)
		return
	}
	*dst = section
}
