package dynamo

// DynamoDB attribute names used in update and condition expressions.
const (
	fieldEnable           = "enable"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
	fieldUpdatedAt        = "updated_at"

	fieldEmployeeID = "employee_id"
	fieldReportDate = "report_date"
	fieldStatus     = "status"
)

// Index names shared by Bootstrap and the repos.
const (
	indexUserEmail       = "email-index"
	indexUserGoogleSub   = "google_sub-index"
	indexSessionUser     = "user_id-index"
	indexSessionRefresh  = "refresh_token-index"
	indexReportsEmployee = "employee_id-report_date-index"
)
