// Package smtp предоставляет SMTP-транспорт для отправки писем уведомлений.
package smtp

import "io"

// Client часть *smtp.Client, которой пользуется отправитель писем.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface устанавливает авторизованные соединения с почтовым сервером.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
