package mail

type StageChangedEmailData struct {
	OwnerName   string
	CompanyName string
	ContactName string
	FromStage   string
	ToStage     string
	Stage       int
	ChangedBy   string
	NextStep    string
}

// EmailSender sends pipeline notifications to prospect owners over SMTP.
type EmailSender struct {
	From   string
	Dialer Dialer
}
