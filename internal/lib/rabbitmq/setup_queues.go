package rabbitmq

// MailExchange — exchange для писем пользователям.
const MailExchange = "mail"

// Очередь писем с подтверждением почты.
const (
	VerificationQueue      = "mail.verification"
	VerificationRoutingKey = "verification"
)

// QueueConfig описывает очередь и ключ маршрутизации, по которому она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetMailQueues возвращает очереди, которые нужно объявить для рассылки писем.
func GetMailQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: VerificationQueue, RoutingKey: VerificationRoutingKey},
	}
}
