package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32pipe/timing/pipeline"
)

var _ = Describe("BranchPredictor", func() {
	var bp *pipeline.BranchPredictor

	BeforeEach(func() {
		bp = pipeline.NewBranchPredictor(pipeline.BranchPredictorConfig{
			BHTSize: 16,
			BTBSize: 16,
		})
	})

	Describe("before any training", func() {
		It("misses the BTB and predicts PC+4", func() {
			pred := bp.Predict(0x1000)
			Expect(pred.BTBHit).To(BeFalse())
			Expect(pred.Target).To(Equal(uint32(0x1004)))
		})
	})

	Describe("after a single taken outcome", func() {
		It("cold-starts from weakly-not-taken and flips to predict-taken immediately", func() {
			pc := uint32(0x2000)
			target := uint32(0x3000)
			idx := bp.Index(pc)

			pred := bp.Predict(pc)
			bp.Update(idx, pred.Taken, true, target)

			pred = bp.Predict(pc)
			Expect(pred.BTBHit).To(BeTrue())
			Expect(pred.Taken).To(BeTrue())
			Expect(pred.Target).To(Equal(target))
		})
	})

	Describe("after repeated taken outcomes", func() {
		It("learns to predict taken with the trained target", func() {
			pc := uint32(0x2000)
			target := uint32(0x3000)
			idx := bp.Index(pc)

			for i := 0; i < 4; i++ {
				pred := bp.Predict(pc)
				bp.Update(idx, pred.Taken, true, target)
			}

			pred := bp.Predict(pc)
			Expect(pred.BTBHit).To(BeTrue())
			Expect(pred.Taken).To(BeTrue())
			Expect(pred.Target).To(Equal(target))
		})
	})

	Describe("after repeated not-taken outcomes following training", func() {
		It("saturates back down and stops predicting taken", func() {
			pc := uint32(0x2000)
			target := uint32(0x3000)
			idx := bp.Index(pc)

			for i := 0; i < 4; i++ {
				bp.Update(idx, false, true, target)
			}
			for i := 0; i < 4; i++ {
				pred := bp.Predict(pc)
				bp.Update(idx, pred.Taken, false, target)
			}

			pred := bp.Predict(pc)
			Expect(pred.BTBHit).To(BeFalse())
		})
	})

	Describe("Index", func() {
		It("is stable for the same PC", func() {
			Expect(bp.Index(0x40)).To(Equal(bp.Index(0x40)))
		})

		It("wraps within BTBSize", func() {
			Expect(bp.Index(0x40)).To(BeNumerically("<", uint32(16)))
		})
	})

	Describe("Stats", func() {
		It("counts predictions, hits and misses", func() {
			bp.Predict(0x1000)
			bp.Predict(0x1004)

			stats := bp.Stats()
			Expect(stats.Predictions).To(Equal(uint64(2)))
			Expect(stats.BTBMisses).To(Equal(uint64(2)))
		})

		It("counts correct and incorrect predictions on Update", func() {
			idx := bp.Index(0x1000)
			bp.Update(idx, false, true, 0x2000)
			bp.Update(idx, true, true, 0x2000)

			stats := bp.Stats()
			Expect(stats.Mispredictions).To(Equal(uint64(1)))
			Expect(stats.Correct).To(Equal(uint64(1)))
		})
	})

	Describe("Reset", func() {
		It("clears learned state and statistics", func() {
			pc := uint32(0x1000)
			idx := bp.Index(pc)
			for i := 0; i < 4; i++ {
				bp.Update(idx, true, true, 0x2000)
			}
			bp.Predict(pc)

			bp.Reset()

			pred := bp.Predict(pc)
			Expect(pred.BTBHit).To(BeFalse())
			Expect(bp.Stats().Predictions).To(Equal(uint64(1)))
		})
	})
})
