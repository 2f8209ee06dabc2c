package email

import (
	"context"
	"fmt"

	"github.com/dsemenov/skyfare/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("send email to %s about %s for flight %d (PNR %s, seats %v)\n",
		event.Email, event.Type, event.FlightID, event.PNR, event.SeatNumbers)
	return nil
}
