package fixtures

import (
	"time"

	"github.com/buildflow/messaging/internal/model"
)

var (
	TestCompanyAcme = model.Company{
		ID:             1,
		Name:           "Acme Builders",
		APIKey:         "test-api-key-1",
		ProviderNumber: "+15550001111",
	}

	TestCompanyNorthside = model.Company{
		ID:             2,
		Name:           "Northside Roofing",
		APIKey:         "test-api-key-2",
		ProviderNumber: "+15550002222",
	}

	TestClientAlice = model.Client{
		ID:          1,
		CompanyID:   1,
		Name:        "Alice",
		PhoneNumber: "+15551234567",
	}

	TestClientBob = model.Client{
		ID:          2,
		CompanyID:   1,
		Name:        "Bob",
		PhoneNumber: "+15557654321",
	}
)

func GrantedConsent(companyID, clientID int64, phone string) *model.ConsentRecord {
	now := time.Now()
	return &model.ConsentRecord{
		CompanyID:   companyID,
		ClientID:    clientID,
		PhoneNumber: phone,
		State:       model.ConsentGranted,
		ConsentDate: &now,
	}
}

func OptedOutConsent(companyID, clientID int64, phone string) *model.ConsentRecord {
	now := time.Now()
	return &model.ConsentRecord{
		CompanyID:    companyID,
		ClientID:     clientID,
		PhoneNumber:  phone,
		State:        model.ConsentOptedOut,
		OptedOutDate: &now,
	}
}

func NewSendRequest(companyID, clientID int64, phone, body string) model.SendMessageRequest {
	return model.SendMessageRequest{
		CompanyID:   companyID,
		UserID:      1,
		ClientID:    clientID,
		PhoneNumber: phone,
		Body:        body,
	}
}

func NewTemplateSendRequest(companyID, clientID int64, phone string, templateID int64, vars map[string]string) model.SendMessageRequest {
	return model.SendMessageRequest{
		CompanyID:   companyID,
		UserID:      1,
		ClientID:    clientID,
		PhoneNumber: phone,
		TemplateID:  &templateID,
		Variables:   vars,
	}
}

func StatusCallback(sid, status string) *model.ProviderCallback {
	return &model.ProviderCallback{
		Kind:          model.CallbackStatus,
		MessageSid:    sid,
		MessageStatus: status,
		ReceivedAt:    time.Now(),
	}
}

func FailedStatusCallback(sid, errorCode, errorMessage string) *model.ProviderCallback {
	return &model.ProviderCallback{
		Kind:          model.CallbackStatus,
		MessageSid:    sid,
		MessageStatus: "failed",
		ErrorCode:     errorCode,
		ErrorMessage:  errorMessage,
		ReceivedAt:    time.Now(),
	}
}

func InboundCallback(sid, from, to, body string) *model.ProviderCallback {
	return &model.ProviderCallback{
		Kind:       model.CallbackInbound,
		MessageSid: sid,
		From:       from,
		To:         to,
		Body:       body,
		ReceivedAt: time.Now(),
	}
}

var (
	ValidPhoneNumbers = []string{
		"+15551234567",
		"555-123-4567",
		"(555) 123-4567",
		"1-555-123-4567",
	}

	TemplateContents = map[string]string{
		"appointment_reminder": "Hi {{client_name}}, this is a reminder about your appointment with {{company_name}}.",
		"invoice_due":          "Hi {{client_name}}, invoice {{invoice_number}} from {{company_name}} is due.",
		"job_complete":         "Hi {{client_name}}, the work at {{job_address}} is complete. Thank you!",
	}
)
