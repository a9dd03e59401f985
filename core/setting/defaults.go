package setting

// Categories
const (
	CategoryGeneral      = "general"
	CategorySecurity     = "security"
	CategoryEmail        = "email"
	CategoryPayment      = "payment"
	CategoryNotification = "notification"
	CategoryStorage      = "storage"
)

var Categories = []string{
	CategoryGeneral, CategorySecurity, CategoryEmail, CategoryPayment, CategoryNotification, CategoryStorage,
}

// defaults returns a fresh copy of the built-in settings, keyed by lower-case category.
func defaults() Grouped {
	return Grouped{
		CategoryGeneral: {
			"siteName":        StringValue("EduTrack"),
			"siteDescription": StringValue("Education management system"),
			"contactEmail":    StringValue("admin@edutrack.local"),
			"contactPhone":    StringValue(""),
			"address":         StringValue(""),
			"timezone":        StringValue("Asia/Ho_Chi_Minh"),
			"language":        StringValue("vi"),
			"dateFormat":      StringValue("DD/MM/YYYY"),
			"academicYear":    StringValue("2023-2024"),
		},
		CategorySecurity: {
			"sessionTimeout":       MustValueOf(30),
			"passwordMinLength":    MustValueOf(8),
			"requireSpecialChars":  MustValueOf(true),
			"requireTwoFactor":     MustValueOf(false),
			"maxLoginAttempts":     MustValueOf(5),
			"lockoutDuration":      MustValueOf(15),
			"passwordExpiryDays":   MustValueOf(90),
			"allowMultipleSession": MustValueOf(true),
		},
		CategoryEmail: {
			"smtpHost":            StringValue("smtp.gmail.com"),
			"smtpPort":            MustValueOf(587),
			"smtpUser":            StringValue(""),
			"smtpSecure":          MustValueOf(true),
			"fromEmail":           StringValue("noreply@edutrack.local"),
			"fromName":            StringValue("EduTrack"),
			"enableNotifications": MustValueOf(true),
		},
		CategoryPayment: {
			"currency":            StringValue("VND"),
			"bankName":            StringValue(""),
			"accountNumber":       StringValue(""),
			"accountHolder":       StringValue(""),
			"enableOnlinePayment": MustValueOf(false),
			"lateFeePercentage":   MustValueOf(0),
			"paymentDueDays":      MustValueOf(30),
			"paymentMethods":      MustValueOf([]string{"BANK_TRANSFER", "CASH", "E_WALLET", "CREDIT_CARD"}),
		},
		CategoryNotification: {
			"emailNotifications":    MustValueOf(true),
			"smsNotifications":      MustValueOf(false),
			"pushNotifications":     MustValueOf(true),
			"notifyOnPayment":       MustValueOf(true),
			"notifyOnEnrollment":    MustValueOf(true),
			"notifyOnGradeUpdate":   MustValueOf(true),
			"reminderDaysBeforeDue": MustValueOf(3),
		},
		CategoryStorage: {
			"maxFileSize":         MustValueOf(10),
			"allowedFileTypes":    MustValueOf([]string{"pdf", "doc", "docx", "xls", "xlsx", "jpg", "png"}),
			"storageProvider":     StringValue("local"),
			"autoBackup":          MustValueOf(false),
			"backupFrequency":     StringValue("daily"),
			"backupRetentionDays": MustValueOf(30),
		},
	}
}

// Defaults returns the built-in settings of every category.
func Defaults() Grouped { return defaults() }

// CategoryDefaults returns the built-in settings of category, or nil if it has none.
func CategoryDefaults(category string) map[string]Value {
	return defaults()[normalizeCategory(category)]
}
