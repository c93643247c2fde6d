//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/danbi-studio/disaster-sim-service/internal/adapter/kafka"
	"github.com/danbi-studio/disaster-sim-service/internal/config"
	"github.com/danbi-studio/disaster-sim-service/internal/domain"
)

const testEventsTopic = "test-disaster-sim-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type auditMessage struct {
	Key     string
	Headers map[string]string
	Value   []byte
}

func readAudit(ctx context.Context, t *testing.T, consumer *kafkago.Reader) auditMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from events topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return auditMessage{Key: string(msg.Key), Headers: headers, Value: msg.Value}
}

// TestPublisherEndToEnd verifies that scenario turn and safety guide audit
// records round-trip through real Kafka with their keys and headers intact.
func TestPublisherEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaEventsTopic: testEventsTopic,
		KafkaEnabled:     true,
	}

	publisher := kafkaadapter.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	turn := domain.NewTurnAudit("태풍 대비 훈련", 1,
		domain.SurvivalAssessment{Rate: 65, Change: "-5"},
		&domain.ChoiceFeedback{
			ChosenAction:   "창문을 보강한다",
			Evaluation:     domain.EvalGood,
			Comment:        "안전한 선택이었습니다.",
			SurvivalImpact: "-5",
		})
	require.NoError(t, publisher.PublishScenarioTurn(ctx, turn))

	guide := domain.NewGuideAudit(
		domain.StationInfo{ObsCode: "DT_0001", ObsName: "인천", DistanceKM: 36.2},
		domain.SafetyGuide{
			Location:  domain.Coordinate{Latitude: 37.5665, Longitude: 126.9780},
			Date:      "20260830",
			RiskLevel: domain.RiskMedium,
			RiskScore: 50,
		})
	require.NoError(t, publisher.PublishSafetyGuide(ctx, guide))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testEventsTopic,
		GroupID:     fmt.Sprintf("test-audit-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	first := readAudit(ctx, t, consumer)
	assert.Equal(t, "태풍 대비 훈련", first.Key)
	assert.Equal(t, kafkaadapter.EventScenarioTurn, first.Headers["event_type"])
	_, err := time.Parse(time.RFC3339, first.Headers["generated_at"])
	assert.NoError(t, err, "generated_at should be valid RFC3339")

	var gotTurn domain.TurnAudit
	require.NoError(t, json.Unmarshal(first.Value, &gotTurn))
	assert.Equal(t, "태풍 대비 훈련", gotTurn.ScenarioTitle)
	assert.Equal(t, 2, gotTurn.Turn)
	assert.Equal(t, 65, gotTurn.SurvivalRate)
	assert.Equal(t, "-5", gotTurn.Change)
	assert.Equal(t, domain.EvalGood, gotTurn.Evaluation)

	second := readAudit(ctx, t, consumer)
	assert.Equal(t, "DT_0001", second.Key)
	assert.Equal(t, kafkaadapter.EventSafetyGuide, second.Headers["event_type"])

	var gotGuide domain.GuideAudit
	require.NoError(t, json.Unmarshal(second.Value, &gotGuide))
	assert.Equal(t, "DT_0001", gotGuide.ObsCode)
	assert.Equal(t, "20260830", gotGuide.Date)
	assert.Equal(t, domain.RiskMedium, gotGuide.RiskLevel)
	assert.Equal(t, 50, gotGuide.RiskScore)
}
