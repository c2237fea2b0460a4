package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/messaging/kafka"
)

const (
	statsConsumerGroup      = "bookstore-stats-invalidator"
	statsConsumerMaxRetries = 3
)

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// initStatsConsumer подписывается на события заказов и склада, сбрасывая кэш сводки.
func initStatsConsumer(brokers string, dlq *kafka.Producer, invalidator kafka.StatsInvalidator, logger *log.Entry) (*kafka.Consumer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	handler := kafka.NewStatsInvalidationHandler(invalidator, logger.WithField("layer", "stats-invalidation"))
	consumer, err := kafka.NewConsumerWithDLQ(
		brokerList,
		statsConsumerGroup,
		[]string{kafka.TopicOrderEvents, kafka.TopicInventoryEvents},
		handler,
		dlq,
		statsConsumerMaxRetries,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka consumer, stats cache relies on TTL")
		return nil, err
	}
	return consumer, nil
}

// closeKafkaProducer закрывает Kafka producer если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

func stopKafkaConsumer(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
}
