package registry

// Payload types mirror the upstream registry's JSON shapes. Dates stay as
// raw YYYY-MM-DD strings; parsing and derived metrics live in heuristics.

// CompanyProfile is the registry's company record, including the
// time-sensitive overdue flags used by the filing analyzer.
type CompanyProfile struct {
	CompanyNumber    string         `json:"company_number"`
	CompanyName      string         `json:"company_name"`
	CompanyStatus    string         `json:"company_status"`
	Type             string         `json:"type"`
	DateOfCreation   string         `json:"date_of_creation"`
	DateOfCessation  string         `json:"date_of_cessation"`
	SICCodes         []string       `json:"sic_codes"`
	RegisteredOffice map[string]any `json:"registered_office_address"`
	HasBeenLiquidated bool          `json:"has_been_liquidated"`
	Accounts         struct {
		Overdue      bool `json:"overdue"`
		NextAccounts struct {
			DueOn string `json:"due_on"`
		} `json:"next_accounts"`
	} `json:"accounts"`
	ConfirmationStatement struct {
		Overdue bool   `json:"overdue"`
		NextDue string `json:"next_due"`
	} `json:"confirmation_statement"`
}

// OfficerLinks carries the link fragments used to derive an officer ID.
type OfficerLinks struct {
	Self    string `json:"self"`
	Officer struct {
		Appointments string `json:"appointments"`
	} `json:"officer"`
}

// Officer is one entry in a company's officer list.
type Officer struct {
	Name        string       `json:"name"`
	OfficerRole string       `json:"officer_role"`
	AppointedOn string       `json:"appointed_on"`
	ResignedOn  string       `json:"resigned_on"`
	Links       OfficerLinks `json:"links"`
}

// OfficerList is the officers endpoint response.
type OfficerList struct {
	Items []Officer `json:"items"`
}

// Appointment is one company appointment in an officer's history.
type Appointment struct {
	AppointedOn string `json:"appointed_on"`
	ResignedOn  string `json:"resigned_on"`
	AppointedTo struct {
		CompanyNumber string `json:"company_number"`
		CompanyName   string `json:"company_name"`
		CompanyStatus string `json:"company_status"`
	} `json:"appointed_to"`
}

// AppointmentList is the per-officer appointments response.
type AppointmentList struct {
	Items []Appointment `json:"items"`
}

// Disqualification records one formal disqualification order.
type Disqualification struct {
	DisqualifiedFrom  string `json:"disqualified_from"`
	DisqualifiedUntil string `json:"disqualified_until"`
	Reason            struct {
		DescriptionIdentifier string `json:"description_identifier"`
	} `json:"reason"`
}

// DisqualificationRecord is the disqualified-officers response.
type DisqualificationRecord struct {
	Disqualifications []Disqualification `json:"disqualifications"`
}

// InsolvencyCase captures the dated events of one insolvency case.
type InsolvencyCase struct {
	Dates []struct {
		Type string `json:"type"`
		Date string `json:"date"`
	} `json:"dates"`
}

// InsolvencyRecord is the company insolvency response.
type InsolvencyRecord struct {
	Cases []InsolvencyCase `json:"cases"`
}

// PSCIdentification describes where a corporate control-holder is registered.
type PSCIdentification struct {
	RegistrationNumber string `json:"registration_number"`
	PlaceRegistered    string `json:"place_registered"`
	CountryRegistered  string `json:"country_registered"`
}

// PSC is one person (or entity) with significant control.
type PSC struct {
	Name             string            `json:"name"`
	Kind             string            `json:"kind"`
	NotifiedOn       string            `json:"notified_on"`
	CeasedOn         string            `json:"ceased_on"`
	Nationality      string            `json:"nationality"`
	NaturesOfControl []string          `json:"natures_of_control"`
	Identification   PSCIdentification `json:"identification"`
}

// PSCList is the persons-with-significant-control response.
type PSCList struct {
	Items []PSC `json:"items"`
}

// PSCStatement flags gaps in a company's control register.
type PSCStatement struct {
	Statement string `json:"statement"`
	CeasedOn  string `json:"ceased_on"`
}

// PSCStatementList is the control statements response.
type PSCStatementList struct {
	Items []PSCStatement `json:"items"`
}

// Filing is one filing-history entry.
type Filing struct {
	Category          string `json:"category"`
	Type              string `json:"type"`
	Date              string `json:"date"`
	Description       string `json:"description"`
	DescriptionValues struct {
		MadeUpDate string `json:"made_up_date"`
	} `json:"description_values"`
}

// FilingHistory is the filing-history response.
type FilingHistory struct {
	Items []Filing `json:"items"`
}

// Charge is one registered charge (mortgage/debenture).
type Charge struct {
	Status       string `json:"status"`
	CreatedOn    string `json:"created_on"`
	ChargeNumber int    `json:"charge_number"`
	Particulars  struct {
		Description             string `json:"description"`
		FloatingChargeCoversAll bool   `json:"floating_charge_covers_all"`
	} `json:"particulars"`
	PersonsEntitled []struct {
		Name string `json:"name"`
	} `json:"persons_entitled"`
}

// ChargeList is the charges response.
type ChargeList struct {
	Items []Charge `json:"items"`
}
