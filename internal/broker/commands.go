package broker

import "github.com/finpulse/finpulse/internal/domain"

// brokerCmd is the command interface for the broker actor.
type brokerCmd interface{ isBrokerCmd() }

type baseBrokerCmd struct{}

func (baseBrokerCmd) isBrokerCmd() {}

type registerCmd struct {
	baseBrokerCmd
	connID       string
	userID       string
	channel      domain.Channel
	errorChannel chan error
}

type removeCmd struct {
	baseBrokerCmd
	connID       string
	replyChannel chan bool
}

type markAliveCmd struct {
	baseBrokerCmd
	connID string
}

type markDeadCmd struct {
	baseBrokerCmd
	connID string
}

type pongCmd struct {
	baseBrokerCmd
	connID string
}

type subscribeCmd struct {
	baseBrokerCmd
	connID string
	topic  string
}

type unsubscribeCmd struct {
	baseBrokerCmd
	connID string
	topic  string
}

type sendToUserCmd struct {
	baseBrokerCmd
	userID   string
	envelope domain.Envelope
}

type broadcastCmd struct {
	baseBrokerCmd
	envelope domain.Envelope
}

type publishToTopicCmd struct {
	baseBrokerCmd
	topic    string
	envelope domain.Envelope
}

type connectionsForUserCmd struct {
	baseBrokerCmd
	userID       string
	replyChannel chan []string
}

type queueSizeCmd struct {
	baseBrokerCmd
	userID       string
	replyChannel chan int
}

type statsCmd struct {
	baseBrokerCmd
	replyChannel chan Stats
}

type stopCmd struct {
	baseBrokerCmd
}
