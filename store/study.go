package store

// StudyProfile is the per-user progression row.
type StudyProfile struct {
	UserID             string
	XP                 int
	TotalCardsReviewed int
	MasteredCards      int
	DailyStreak        int
	LastStudyDate      string // YYYY-MM-DD, empty if never studied
	AchievementIDs     string // JSON array
	TopicStats         string // JSON object
	CreatedTs          int64
	UpdatedTs          int64
}

// FindStudyProfile specifies the conditions for finding a study profile.
type FindStudyProfile struct {
	UserID *string
}

// CardState is the spaced repetition state of one card for one user.
type CardState struct {
	UserID         string
	CardID         string
	EaseFactor     float64
	IntervalDays   int
	Repetition     int
	MasteryScore   int
	Lapses         int
	DueTs          int64
	LastReviewedTs int64
}

// FindCardState specifies the conditions for listing card states.
type FindCardState struct {
	UserID *string
	// DueBeforeTs keeps cards with due_ts <= DueBeforeTs.
	DueBeforeTs *int64
}

// DailyHistory aggregates one UTC day of study for a user.
type DailyHistory struct {
	UserID   string
	Date     string
	Reviewed int
	Correct  int
	XP       int
}

// FindDailyHistory specifies the conditions for listing daily history.
type FindDailyHistory struct {
	UserID *string
}

// UpsertStudySnapshot is written in a single transaction: the profile row is
// upserted, Cards are upserted and History replaces the user's history.
type UpsertStudySnapshot struct {
	Profile *StudyProfile
	Cards   []*CardState
	History []*DailyHistory
}

// DeleteStudySnapshot removes every study row of a user.
type DeleteStudySnapshot struct {
	UserID string
}
