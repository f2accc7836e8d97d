package advertiser_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codedphy/beacon/internal/work"
	"github.com/codedphy/beacon/pkg/advdata"
	"github.com/codedphy/beacon/pkg/advertiser"
	"github.com/codedphy/beacon/pkg/transport"
)

type fakeSet struct {
	params     transport.SetParams
	structures []advdata.Structure

	dataCalls  int
	startCalls int
	stopCalls  int

	dataErr  error
	startErr error
}

func (s *fakeSet) SetData(structures []advdata.Structure) error {
	s.dataCalls++
	if s.dataErr != nil {
		return s.dataErr
	}
	s.structures = structures
	return nil
}

func (s *fakeSet) Start() error {
	s.startCalls++
	return s.startErr
}

func (s *fakeSet) Stop() error {
	s.stopCalls++
	return nil
}

type fakeRadio struct {
	created []*fakeSet

	createErr error
	dataErr   error
	startErr  error
}

func (r *fakeRadio) CreateSet(params transport.SetParams) (transport.Set, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	s := &fakeSet{params: params, dataErr: r.dataErr, startErr: r.startErr}
	r.created = append(r.created, s)
	return s, nil
}

func testConfig() advertiser.Config {
	return advertiser.Config{
		DeviceName:      "HR Coded",
		Services:        []uint16{advdata.UUIDHeartRateService, advdata.UUIDBatteryService, advdata.UUIDDeviceInfoService},
		TargetTotal:     1650,
		StructureCap:    256,
		CompanyID:       advdata.DefaultCompanyID,
		Sentinel:        advdata.DefaultSentinel,
		FastIntervalMin: transport.FastIntervalMin,
		FastIntervalMax: transport.FastIntervalMax,
		SlowIntervalMin: transport.SlowIntervalMin,
		SlowIntervalMax: transport.SlowIntervalMax,
	}
}

func drain(q *work.Queue) {
	done := make(chan struct{})
	Expect(q.Submit(func() { close(done) })).To(Succeed())
	Eventually(done).Should(BeClosed())
}

var _ = Describe("Manager", func() {
	var radio *fakeRadio

	BeforeEach(func() {
		radio = &fakeRadio{}
	})

	Describe("New", func() {
		It("rejects chunk configurations with no room for data", func() {
			cfg := testConfig()
			cfg.TargetTotal = 258 // remainder 2 == framing overhead
			_, err := advertiser.New(radio, cfg)
			var configErr *advdata.ConfigError
			Expect(errors.As(err, &configErr)).To(BeTrue())
			Expect(radio.created).To(BeEmpty())
		})
	})

	Describe("StartAdvertising", func() {
		It("brings up the connectable set before the broadcast set", func() {
			m, err := advertiser.New(radio, testConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.StartAdvertising()).To(Succeed())

			Expect(radio.created).To(HaveLen(2))
			Expect(radio.created[0].params.Connectable).To(BeTrue())
			Expect(radio.created[0].params.RequireS8).To(BeTrue())
			Expect(radio.created[0].params.IntervalMin).To(Equal(transport.FastIntervalMin))
			Expect(radio.created[1].params.Connectable).To(BeFalse())
			Expect(radio.created[1].params.IntervalMin).To(Equal(transport.SlowIntervalMin))
			Expect(radio.created[1].structures).To(HaveLen(7))

			Expect(m.ConnectableState()).To(Equal(advertiser.StateAdvertising))
			Expect(m.BroadcastState()).To(Equal(advertiser.StateAdvertising))
		})

		It("never touches the broadcast set if the connectable set fails to start", func() {
			radio.startErr = transport.ErrStartFailed
			m, err := advertiser.New(radio, testConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.StartAdvertising()).To(MatchError(transport.ErrStartFailed))

			// Only the connectable set was ever created; its single start
			// attempt failed.
			Expect(radio.created).To(HaveLen(1))
			Expect(radio.created[0].startCalls).To(Equal(1))
			Expect(m.BroadcastState()).To(Equal(advertiser.StateUninitialized))
		})

		It("aborts startup when set creation fails", func() {
			radio.createErr = transport.ErrCreationFailed
			m, err := advertiser.New(radio, testConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.StartAdvertising()).To(MatchError(transport.ErrCreationFailed))
			Expect(radio.created).To(BeEmpty())
		})

		It("aborts startup when the controller rejects advertising data", func() {
			radio.dataErr = transport.ErrDataRejected
			m, err := advertiser.New(radio, testConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.StartAdvertising()).To(MatchError(transport.ErrDataRejected))

			Expect(radio.created).To(HaveLen(1))
			Expect(radio.created[0].startCalls).To(BeZero())
			Expect(m.ConnectableState()).To(Equal(advertiser.StateCreated))
		})
	})

	Describe("RequestRestart", func() {
		var (
			q *work.Queue
			m *advertiser.Manager
		)

		BeforeEach(func() {
			q = work.NewQueue()
			var err error
			m, err = advertiser.New(radio, testConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.StartAdvertising()).To(Succeed())
		})

		It("coalesces repeated disconnects into a single restart", func() {
			// The queue has not started, so all requests land before the
			// backlog drains.
			m.RequestRestart(q)
			m.RequestRestart(q)
			m.RequestRestart(q)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			Expect(q.Start(ctx)).To(Succeed())
			DeferCleanup(q.Stop)
			drain(q)

			Expect(radio.created[0].startCalls).To(Equal(2))
			Expect(m.ConnectableState()).To(Equal(advertiser.StateAdvertising))
		})

		It("accepts a new restart once the previous one has run", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			Expect(q.Start(ctx)).To(Succeed())
			DeferCleanup(q.Stop)

			m.RequestRestart(q)
			drain(q)
			m.RequestRestart(q)
			drain(q)

			Expect(radio.created[0].startCalls).To(Equal(3))
		})

		It("leaves the broadcast set alone across restarts", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			Expect(q.Start(ctx)).To(Succeed())
			DeferCleanup(q.Stop)

			m.RequestRestart(q)
			drain(q)

			Expect(radio.created[1].startCalls).To(Equal(1))
			Expect(radio.created[1].stopCalls).To(BeZero())
			Expect(m.BroadcastState()).To(Equal(advertiser.StateAdvertising))
		})

		It("keeps running degraded when the restart fails", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			Expect(q.Start(ctx)).To(Succeed())
			DeferCleanup(q.Stop)

			radio.created[0].startErr = transport.ErrStartFailed
			m.RequestRestart(q)
			drain(q)

			Expect(m.ConnectableState()).To(Equal(advertiser.StateStopped))
			Expect(m.BroadcastState()).To(Equal(advertiser.StateAdvertising))

			// A later restart from Stopped is still legal.
			radio.created[0].startErr = nil
			m.RequestRestart(q)
			drain(q)
			Expect(m.ConnectableState()).To(Equal(advertiser.StateAdvertising))
		})
	})

	Describe("Restart", func() {
		It("is invalid before startup completes", func() {
			m, err := advertiser.New(radio, testConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Restart()).To(HaveOccurred())
		})
	})

	Describe("Stop", func() {
		It("stops both advertising sets", func() {
			m, err := advertiser.New(radio, testConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.StartAdvertising()).To(Succeed())
			m.Stop()
			Expect(radio.created[0].stopCalls).To(Equal(1))
			Expect(radio.created[1].stopCalls).To(Equal(1))
			Expect(m.ConnectableState()).To(Equal(advertiser.StateStopped))
			Expect(m.BroadcastState()).To(Equal(advertiser.StateStopped))
		})
	})
})
