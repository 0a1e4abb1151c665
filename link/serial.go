package link

import (
	"fmt"

	"github.com/tarm/serial"
)

// SerialConfig names the device path and baud rate for one of the two
// UARTs a node is wired to.
type SerialConfig struct {
	Device   string
	BaudRate int
}

// SerialLink is the production Link backend, a single UART opened with
// github.com/tarm/serial. Grounded on this fleet's Bluetooth gateway
// service, which opens its MDB UART the same way before running its own
// framed byte-protocol reader on top.
type SerialLink struct {
	port *serial.Port
}

// OpenSerial opens the named device at the given baud rate.
func OpenSerial(cfg SerialConfig) (*SerialLink, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name: cfg.Device,
		Baud: cfg.BaudRate,
	})
	if err != nil {
		return nil, fmt.Errorf("link: open %s: %w", cfg.Device, err)
	}
	return &SerialLink{port: port}, nil
}

func (s *SerialLink) Recv(buf []byte) error {
	return recvFull(s.port, buf)
}

func (s *SerialLink) Send(buf []byte) error {
	_, err := s.port.Write(buf)
	return err
}

func (s *SerialLink) Close() error {
	return s.port.Close()
}
