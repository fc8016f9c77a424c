package models

// All lists every persisted model in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Team{},
		&Business{},
		&BusinessUser{},
		&RequestType{},
		&RequestTypeField{},
		&Request{},
		&RequestFieldValue{},
		&Comment{},
		&Attachment{},
		&AuditLog{},
		&Notification{},
		&Feedback{},
		&Setting{},
		&Mcp{},
		&McpPost{},
		&Opmp{},
		&OpmpVersion{},
		&WebhookDelivery{},
		&ResetToken{},
		&RefreshToken{},
	}
}
