package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const otpQueueName = "otp.issued"

// OTPSender delivers one sign-in code. Satisfied by service.Mailer.
type OTPSender interface {
	SendOTP(email, code string, ttlMinutes int) error
}

// StartOTPConsumer connects to RabbitMQ, declares the otp.issued queue
// (durable) and mails each event's code to its address. It runs a reconnect
// loop with exponential backoff and never returns under normal operation;
// processing errors are logged and the offending message rejected without
// requeue so a poisonous event cannot loop forever.
func StartOTPConsumer(url string, sender OTPSender) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("otp-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, sender); err != nil {
			log.Printf("otp-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, sender OTPSender) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("otp-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(otpQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(otpQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, sender); err != nil {
			log.Printf("otp-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, sender OTPSender) error {
	var ev OTPIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := sender.SendOTP(ev.Email, ev.Code, ev.TTLMinutes); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}
