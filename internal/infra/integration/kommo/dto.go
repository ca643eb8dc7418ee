package kommo

// CreateLeadInput is what the CRM hands over at technical handoff.
type CreateLeadInput struct {
	ProspectID  string
	CompanyName string
	ContactName string
	Email       string
	Phone       string
	Price       int
	Tags        []string
}

type tag struct {
	Name string `json:"name"`
}

type ref struct {
	ID int `json:"id"`
}

type leadEmbedded struct {
	Tags     []tag `json:"tags,omitempty"`
	Contacts []ref `json:"contacts,omitempty"`
}

type leadRequest struct {
	Name     string       `json:"name"`
	Price    int          `json:"price"`
	StatusID int          `json:"status_id,omitempty"`
	Embedded leadEmbedded `json:"_embedded"`
}

type fieldValue struct {
	Value    string `json:"value"`
	EnumCode string `json:"enum_code"`
}

type customField struct {
	FieldCode string       `json:"field_code"`
	Values    []fieldValue `json:"values"`
}

type contactRequest struct {
	Name         string        `json:"name"`
	CustomFields []customField `json:"custom_fields_values,omitempty"`
}

// embeddedResponse covers the list envelopes returned by /leads and /contacts.
type embeddedResponse struct {
	Embedded struct {
		Leads    []ref `json:"leads"`
		Contacts []ref `json:"contacts"`
	} `json:"_embedded"`
}
