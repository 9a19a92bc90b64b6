//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kopitetangga/service-loyalty/internal/adapter"
	"github.com/kopitetangga/service-loyalty/internal/application"
	"github.com/kopitetangga/service-loyalty/internal/domain/membership"
	"github.com/kopitetangga/service-loyalty/internal/domain/program"
	"github.com/kopitetangga/service-loyalty/internal/domain/reward"
	loyaltyEvents "github.com/kopitetangga/service-loyalty/internal/events"
	"github.com/kopitetangga/service-loyalty/internal/repository"
	"github.com/kopitetangga/service-loyalty/pkg/kafka"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// loyaltyStack holds wired-up loyalty service components.
type loyaltyStack struct {
	Service         *application.LoyaltyService
	Memberships     *repository.GormMembershipRepository
	Consumer        *loyaltyEvents.POSEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_loyalty",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_loyalty sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.CustomerModel{},
		&repository.MembershipModel{},
		&repository.CycleModel{},
		&repository.StampModel{},
		&repository.CardModel{},
		&repository.SettingsModel{},
		&repository.AuditModel{},
	))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, loyaltyEvents.TopicPOSEvents, loyaltyEvents.TopicLoyaltyEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupLoyaltyStack wires up the full loyalty service stack.
func setupLoyaltyStack(t *testing.T, db *gorm.DB, brokers []string) *loyaltyStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	defaults := program.Settings{
		MembershipFee:            25000,
		MembershipDurationMonths: 3,
		DiscountPercent:          10,
		MinAmountForStamp:        50000,
		RewardMilestones: map[int]reward.Type{
			5:  reward.TypeFreeDrink,
			10: reward.TypeVoucher50K,
		},
	}

	membershipRepo := repository.NewGormMembershipRepository(db)
	settingsRepo := repository.NewGormSettingsRepository(db, 10, defaults)
	auditRepo := repository.NewGormAuditRepository(db, logger)

	producer := kafka.NewProducer(brokers, logger)
	publisher := loyaltyEvents.NewPublisher(producer, logger)
	mockPOS := adapter.NewMockPOSAdapter(logger)

	loyaltySvc := application.NewLoyaltyService(
		membershipRepo, settingsRepo, mockPOS, publisher, auditRepo, 10, logger)

	groupID := fmt.Sprintf("test-loyalty-%s", uuid.New().String()[:8])
	consumer := loyaltyEvents.NewPOSEventConsumer(brokers, groupID, loyaltySvc, logger)

	return &loyaltyStack{
		Service:         loyaltySvc,
		Memberships:     membershipRepo,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedActiveMembership inserts an active membership with no cycles.
func seedActiveMembership(t *testing.T, repo *repository.GormMembershipRepository, cardNumber string) *membership.Membership {
	t.Helper()
	start := time.Now().UTC().AddDate(0, 0, -1)
	m, err := membership.NewMembership(
		membership.Customer{
			ID:        uuid.New(),
			Name:      "Integration Tester",
			Phone:     fmt.Sprintf("+62812%08d", time.Now().UnixNano()%100000000),
			CreatedAt: time.Now().UTC(),
		},
		cardNumber,
		uuid.New(),
		start,
		start.AddDate(0, 3, 0),
	)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), m))
	return m
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForStampCount polls until the membership holds the expected number of stamps.
func waitForStampCount(t *testing.T, repo *repository.GormMembershipRepository, id uuid.UUID, expected int, timeout time.Duration) *membership.Membership {
	t.Helper()
	var result *membership.Membership
	require.Eventually(t, func() bool {
		m, err := repo.FindByID(context.Background(), id)
		if err != nil {
			return false
		}
		total := 0
		for _, c := range m.Cycles() {
			total += c.StampCount()
		}
		if total == expected {
			result = m
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "membership did not reach %d stamps", expected)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
