package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"tickflow/logger"
)

// Counters are mirrored into this map alongside Prometheus so the CloudWatch
// publisher can drain deltas without touching registry internals.
var (
	counters sync.Map // map[string]*int64, cumulative
	gauges   sync.Map // map[string]*atomic.Value holding float64
)

func record(name string, delta int64) {
	v, _ := counters.LoadOrStore(name, new(int64))
	atomic.AddInt64(v.(*int64), delta)
}

func setGauge(name string, value float64) {
	v, _ := gauges.LoadOrStore(name, &atomic.Value{})
	v.(*atomic.Value).Store(value)
}

type cloudWatchState struct {
	client    *cloudwatch.Client
	namespace string
	region    string
}

var cwState atomic.Pointer[cloudWatchState]

// InitCloudWatch initialises the CloudWatch client for the given region and
// namespace. When the AWS configuration cannot be loaded the function logs a
// warning and leaves publishing disabled.
func InitCloudWatch(region, namespace string) {
	log := logger.GetLogger().WithComponent("cloudwatch")

	ctx := context.Background()
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}

	state := &cloudWatchState{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		region:    cfg.Region,
	}
	if state.namespace == "" {
		state.namespace = "Tickflow"
	}
	cwState.Store(state)

	log.WithFields(logger.Fields{
		"region":    state.region,
		"namespace": state.namespace,
	}).Info("initialized CloudWatch client")
}

// StartCloudWatchPublisher drains counter deltas every interval and ships
// them as metric data. A nil client (init skipped or failed) makes this a
// no-op loop that exits immediately.
func StartCloudWatchPublisher(ctx context.Context, interval time.Duration) {
	state := cwState.Load()
	if state == nil || state.client == nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	log := logger.GetLogger().WithComponent("cloudwatch")

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		published := make(map[string]int64)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				data := collect(published)
				if len(data) == 0 {
					continue
				}
				// CloudWatch accepts at most 20 datums per call.
				for start := 0; start < len(data); start += 20 {
					end := start + 20
					if end > len(data) {
						end = len(data)
					}
					_, err := state.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
						Namespace:  aws.String(state.namespace),
						MetricData: data[start:end],
					})
					if err != nil {
						log.WithError(err).Warn("failed to publish metric data")
						break
					}
				}
			}
		}
	}()
}

func collect(published map[string]int64) []cwtypes.MetricDatum {
	now := time.Now()
	var data []cwtypes.MetricDatum

	counters.Range(func(key, value interface{}) bool {
		name := key.(string)
		total := atomic.LoadInt64(value.(*int64))
		delta := total - published[name]
		if delta == 0 {
			return true
		}
		published[name] = total
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(name),
			Timestamp:  aws.Time(now),
			Unit:       cwtypes.StandardUnitCount,
			Value:      aws.Float64(float64(delta)),
		})
		return true
	})

	gauges.Range(func(key, value interface{}) bool {
		v := value.(*atomic.Value).Load()
		if v == nil {
			return true
		}
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(key.(string)),
			Timestamp:  aws.Time(now),
			Unit:       cwtypes.StandardUnitNone,
			Value:      aws.Float64(v.(float64)),
		})
		return true
	})

	return data
}
