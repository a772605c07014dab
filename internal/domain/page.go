package domain

// Stored page settings keys, as returned by SettingsRepository.GetPageSettingsRaw.
const (
	PageKeyCalendar           = "page_calendar"
	PageKeyReportsUserDayWise = "page_reports_UserDayWise"
)

type PageSettings struct {
	Calendar           CalendarSettings    `json:"calendar"`
	ReportsUserDayWise UserDayWiseSettings `json:"reports_UserDayWise"`
}

type CalendarSettings struct {
	ViewMode       string `json:"viewMode"`
	ShowWorklogs   bool   `json:"showWorklogs"`
	ShowMeetings   bool   `json:"showMeetings"`
	ShowInfo       bool   `json:"showInfo"`
	EventColor     string `json:"eventColor"`
	WorklogColor   string `json:"worklogColor"`
	InfoColorValid string `json:"infoColor_valid"`
	InfoColorLess  string `json:"infoColor_less"`
	InfoColorHigh  string `json:"infoColor_high"`
}

type UserDayWiseSettings struct {
	LogFormat   string `json:"logFormat"`
	BreakupMode string `json:"breakupMode"`
	GroupMode   string `json:"groupMode"`
}

func DefaultCalendarSettings() CalendarSettings {
	return CalendarSettings{
		ViewMode:       "timeGridWeek",
		ShowWorklogs:   true,
		ShowMeetings:   true,
		ShowInfo:       true,
		EventColor:     "#51b749",
		WorklogColor:   "#9a9cff",
		InfoColorValid: "#3a87ad",
		InfoColorLess:  "#f0d44f",
		InfoColorHigh:  "#f06262",
	}
}

func DefaultUserDayWiseSettings() UserDayWiseSettings {
	return UserDayWiseSettings{LogFormat: "1", BreakupMode: "1", GroupMode: "1"}
}
