package main

import (
	"bytes"
	"context"
	"testing"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("UPLOAD_DIR", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", t.TempDir()+"/missing.env"))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "seed", "consume"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestMigrateMemoryStore(t *testing.T) {
	_, err := execute(t, "migrate")
	assert.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreDriver)
}

func TestSeedMemoryStore(t *testing.T) {
	out, err := execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 users and 5 products")
}

func TestConsumeRequiresBroker(t *testing.T) {
	_, err := execute(t, "consume")
	assert.ErrorContains(t, err, "RABBITMQ_URL")
}

func TestInvalidConfiguration(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--env-file", t.TempDir() + "/missing.env"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "STORE_DRIVER")
}

type nopAck struct{}

func (nopAck) Ack(uint64, bool) error        { return nil }
func (nopAck) Nack(uint64, bool, bool) error { return nil }
func (nopAck) Reject(uint64, bool) error     { return nil }

func TestLogOrderEvent(t *testing.T) {
	handle := logOrderEvent(zap.NewNop())

	err := handle(context.Background(), amqp.Delivery{
		Acknowledger: nopAck{},
		RoutingKey:   "order.created",
		Body:         []byte(`{"type":"order.created","order_id":"o1","status":"pending","total_amount":"700000","item_count":1}`),
	})
	assert.NoError(t, err)

	err = handle(context.Background(), amqp.Delivery{RoutingKey: "order.created", Body: []byte("not json")})
	assert.ErrorContains(t, err, "order.created")
}
