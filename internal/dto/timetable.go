package dto

// GenerateTimetableRequest starts a generation run. The budget defaults to
// the configured solver time budget when omitted.
type GenerateTimetableRequest struct {
	TimeBudgetSeconds int `json:"timeBudgetSeconds" validate:"omitempty,min=1,max=3600"`
}

// SkippedSubject reports a (group, subject) pair excluded from the model
// before solving. Duration is only populated for oversized skips.
type SkippedSubject struct {
	GroupID   string `json:"groupId"`
	SubjectID string `json:"subjectId"`
	Duration  int    `json:"duration,omitempty"`
}

// GroupCoverage summarises how many required subjects a group received.
type GroupCoverage struct {
	GroupID   string `json:"groupId"`
	Scheduled int    `json:"scheduled"`
	Required  int    `json:"required"`
}

// GenerateTimetableResponse reports the outcome of one generation run.
type GenerateTimetableResponse struct {
	Status           string           `json:"status"`
	ScheduledCount   int              `json:"scheduledCount"`
	SkippedOversized []SkippedSubject `json:"skippedOversized"`
	SkippedNoSlot    []SkippedSubject `json:"skippedNoSlot"`
	Groups           []GroupCoverage  `json:"groups,omitempty"`
	VariableCount    int              `json:"variableCount"`
	SolveWallTimeMS  int64            `json:"solveWallTimeMs"`
}
