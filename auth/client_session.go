package auth

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	Logger "github.com/moastrends/newsroom/utils/log"
)

const topicSessionChange = "session.change"

// ClientSession mirrors the session state a single client holds against the
// auth service: the token it currently carries plus a stream of session
// change notifications for that token. It is the in-process equivalent of
// the hosted client's onAuthStateChange surface. For now the notifications
// ride on a golang channel event bus, later when needed it could be
// substituted with an external broker.
type ClientSession struct {
	svc *Service
	bus *gochannel.GoChannel

	mu    sync.Mutex
	token string
}

func NewClientSession(svc *Service) *ClientSession {
	return &ClientSession{
		svc: svc,
		bus: gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}),
	}
}

// SignIn exchanges the credential pair for a session token and notifies
// subscribers of the new principal.
func (c *ClientSession) SignIn(ctx context.Context, email, password string) error {
	token, err := c.svc.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return c.adopt(ctx, token)
}

// SignInAdmin is SignIn through the admin login surface.
func (c *ClientSession) SignInAdmin(ctx context.Context, email, password string) error {
	token, err := c.svc.SignInAdmin(ctx, email, password)
	if err != nil {
		return err
	}
	return c.adopt(ctx, token)
}

func (c *ClientSession) adopt(ctx context.Context, token string) error {
	accountId, err := c.svc.Session(ctx, token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.publish(accountId)
	return nil
}

// SignOut revokes the current token and notifies subscribers that the
// principal is gone.
func (c *ClientSession) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.mu.Unlock()

	if err := c.svc.SignOut(ctx, token); err != nil {
		return err
	}
	c.publish("")
	return nil
}

// Session resolves the currently held token to an account id. No token means
// no session, not an error.
func (c *ClientSession) Session(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	return c.svc.Session(ctx, token)
}

// Token returns the session token this client currently carries.
func (c *ClientSession) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Changes delivers the account id of every subsequent session change, empty
// string meaning signed out. The channel closes when ctx is cancelled, which
// releases the subscription.
func (c *ClientSession) Changes(ctx context.Context) (<-chan string, error) {
	msgs, err := c.bus.Subscribe(ctx, topicSessionChange)
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range msgs {
			accountId := string(msg.Payload)
			msg.Ack()
			select {
			case out <- accountId:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *ClientSession) publish(accountId string) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(accountId))
	if err := c.bus.Publish(topicSessionChange, msg); err != nil {
		Logger.Log.Error("fail to publish session change: ", err)
	}
}

// Close shuts the event bus down. Pending Changes channels are closed.
func (c *ClientSession) Close() error {
	return c.bus.Close()
}
