package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/user-auth/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/user-auth/internal/lib/smtp"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	return m.Called(from).Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	return m.Called(to).Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Quit() error {
	return m.Called().Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	return m.Called().Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func expectDelivery(tr *MockTransport, to string, bodyCheck func(string) bool) {
	mockClient := new(MockSMTPClient)
	mockWriter := new(MockSMTPWriter)

	tr.On("GetSMTPUser").Return("noreply@example.com")
	tr.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "noreply@example.com").Return(nil).Once()
	mockClient.On("Rcpt", to).Return(nil).Once()
	mockClient.On("Data").Return(mockWriter, nil).Once()
	mockWriter.On("Write", mock.MatchedBy(func(p []byte) bool { return bodyCheck(string(p)) })).Return(100, nil).Once()
	mockWriter.On("Close").Return(nil).Once()
	mockClient.On("Quit").Return(nil).Once()
	mockClient.On("Close").Return(nil).Once()
}

func TestVerificationLink(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/api/users/verify/abc", VerificationLink("http://localhost:8080/", "abc"))
	assert.Equal(t, "https://x.io/api/users/verify/a%2Fb", VerificationLink("https://x.io", "a/b"))
}

func TestSenderService_SendVerification(t *testing.T) {
	transport := new(MockTransport)
	expectDelivery(transport, "a@x.com", func(msg string) bool {
		return strings.Contains(msg, "To: a@x.com") &&
			strings.Contains(msg, "Subject: Verify your email") &&
			strings.Contains(msg, "http://localhost:8080/api/users/verify/token-1")
	})

	service := NewSenderService(newNoopLogger(), transport, "http://localhost:8080")
	assert.NoError(t, service.SendVerification(context.Background(), "a@x.com", "token-1"))
	transport.AssertExpectations(t)
}

func TestSenderService_HandleVerificationMessage(t *testing.T) {
	tests := []struct {
		name          string
		body          []byte
		setupMocks    func(*MockTransport)
		expectedError bool
		errorMessage  string
		permanent     bool
	}{
		{
			name: "success with link from message",
			body: []byte(`{"email":"a@x.com","token":"t1","link":"https://auth.example.com/api/users/verify/t1"}`),
			setupMocks: func(tr *MockTransport) {
				expectDelivery(tr, "a@x.com", func(msg string) bool {
					return strings.Contains(msg, "https://auth.example.com/api/users/verify/t1")
				})
			},
		},
		{
			name: "success builds missing link",
			body: []byte(`{"email":"b@x.com","token":"t2"}`),
			setupMocks: func(tr *MockTransport) {
				expectDelivery(tr, "b@x.com", func(msg string) bool {
					return strings.Contains(msg, "http://localhost:8080/api/users/verify/t2")
				})
			},
		},
		{
			name:          "invalid JSON",
			body:          []byte(`invalid json`),
			setupMocks:    func(_ *MockTransport) {},
			expectedError: true,
			errorMessage:  "error unmarshalling message",
			permanent:     true,
		},
		{
			name:          "missing token",
			body:          []byte(`{"email":"a@x.com"}`),
			setupMocks:    func(_ *MockTransport) {},
			expectedError: true,
			errorMessage:  "without email or token",
			permanent:     true,
		},
		{
			name: "SMTP connection error",
			body: []byte(`{"email":"a@x.com","token":"t1"}`),
			setupMocks: func(tr *MockTransport) {
				tr.On("GetSMTPUser").Return("noreply@example.com")
				tr.On("Connect").Return(nil, errors.New("connection error")).Once()
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			service := NewSenderService(newNoopLogger(), transport, "http://localhost:8080")

			tt.setupMocks(transport)

			err := service.HandleVerificationMessage(tt.body)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
				assert.Equal(t, tt.permanent, errors.Is(err, rabbitmq.ErrPermanent))
			} else {
				assert.NoError(t, err)
			}

			transport.AssertExpectations(t)
		})
	}
}

func TestSenderService_RcptFails(t *testing.T) {
	transport := new(MockTransport)
	mockClient := new(MockSMTPClient)

	transport.On("GetSMTPUser").Return("noreply@example.com")
	transport.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "noreply@example.com").Return(nil).Once()
	mockClient.On("Rcpt", "a@x.com").Return(errors.New("mailbox unavailable")).Once()
	mockClient.On("Close").Return(nil).Once()

	service := NewSenderService(newNoopLogger(), transport, "http://localhost:8080")
	err := service.SendVerification(context.Background(), "a@x.com", "t1")
	assert.ErrorContains(t, err, "mailbox unavailable")
	mockClient.AssertExpectations(t)
}
