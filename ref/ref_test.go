package ref_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cnnsim/fixed"
	"github.com/sarchlab/cnnsim/ref"
)

var _ = Describe("ProductSum", func() {
	f84 := fixed.Format{Bits: 8, Frac: 4}

	It("should compute the exact dot product at full growth", func() {
		data, _ := fixed.WindowFromRaw(2, f84, []int64{1, 2, 3, 4})
		weights, _ := fixed.WindowFromRaw(2, f84, []int64{5, 6, 7, 8})

		out := ref.ProductSum(data, weights)

		Expect(out.Raw()).To(Equal(int64(5 + 12 + 21 + 32)))
		Expect(out.Format()).To(Equal(fixed.Format{Bits: 18, Frac: 8}))
	})

	It("should reduce to a single product for a 1x1 window", func() {
		data, _ := fixed.WindowFromRaw(1, f84, []int64{-7})
		weights, _ := fixed.WindowFromRaw(1, f84, []int64{11})

		out := ref.ProductSum(data, weights)

		Expect(out.Raw()).To(Equal(int64(-77)))
	})
})

var _ = Describe("Conv", func() {
	f83 := fixed.Format{Bits: 8, Frac: 3}

	It("should match the all-ones 3x3 reference scenario", func() {
		// 3x3 window of value 1 at scale 2^3 times identical weights,
		// bias 0: the output is exactly 9 at the output scale.
		data, _ := fixed.UniformWindow(3, f83, 8)
		weights, _ := fixed.UniformWindow(3, f83, 8)
		bias := fixed.MustNew(0, f83)
		acc := fixed.Format{Bits: 21, Frac: 6}
		out := fixed.Format{Bits: 12, Frac: 3}

		got := ref.Conv([]fixed.Window{data}, []fixed.Window{weights}, bias, acc, out)

		Expect(got.Raw()).To(Equal(int64(9 * 8)))
		Expect(got.Float()).To(Equal(9.0))
	})

	It("should accumulate across input channels", func() {
		ch0, _ := fixed.UniformWindow(2, f83, 8) // four elements of 1.0
		ch1, _ := fixed.UniformWindow(2, f83, 16) // four elements of 2.0
		w, _ := fixed.UniformWindow(2, f83, 8)
		bias := fixed.MustNew(8, f83) // 1.0
		acc := fixed.Format{Bits: 20, Frac: 6}
		out := fixed.Format{Bits: 12, Frac: 3}

		got := ref.Conv([]fixed.Window{ch0, ch1}, []fixed.Window{w, w}, bias, acc, out)

		// 4*1 + 4*2 + 1 = 13.0
		Expect(got.Float()).To(Equal(13.0))
	})

	It("should saturate an overflowing sum at the output extreme", func() {
		data, _ := fixed.UniformWindow(3, f83, 127)
		weights, _ := fixed.UniformWindow(3, f83, 127)
		bias := fixed.MustNew(0, f83)
		acc := fixed.Format{Bits: 21, Frac: 6}
		out := fixed.Format{Bits: 8, Frac: 3}

		got := ref.Conv([]fixed.Window{data}, []fixed.Window{weights}, bias, acc, out)

		Expect(got.Raw()).To(Equal(int64(127)))
	})
})

var _ = Describe("MaxPool", func() {
	f84 := fixed.Format{Bits: 8, Frac: 4}

	It("should find the maximum wherever it sits", func() {
		for pos := 0; pos < 9; pos++ {
			raws := make([]int64, 9)
			for i := range raws {
				raws[i] = int64(i) - 8
			}
			raws[pos] = 100
			w, err := fixed.WindowFromRaw(3, f84, raws)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.MaxPool(w).Raw()).To(Equal(int64(100)))
		}
	})

	It("should handle all-negative windows", func() {
		w, _ := fixed.WindowFromRaw(2, f84, []int64{-5, -3, -9, -7})
		Expect(ref.MaxPool(w).Raw()).To(Equal(int64(-3)))
	})
})

var _ = Describe("Quantize", func() {
	f84 := fixed.Format{Bits: 8, Frac: 4}

	It("should scale by 2^frac and round to nearest", func() {
		v, err := ref.Quantize(1.5, f84)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Raw()).To(Equal(int64(24)))
	})

	It("should break ties to even like the rounding policy", func() {
		v, _ := ref.Quantize(3.0/32, f84) // scaled 1.5, tie -> 2
		Expect(v.Raw()).To(Equal(int64(2)))

		v, _ = ref.Quantize(5.0/32, f84) // scaled 2.5, tie -> 2
		Expect(v.Raw()).To(Equal(int64(2)))
	})

	It("should clamp beyond the representable range", func() {
		v, _ := ref.Quantize(1000, f84)
		Expect(v.Raw()).To(Equal(int64(127)))

		v, _ = ref.Quantize(-1000, f84)
		Expect(v.Raw()).To(Equal(int64(-128)))
	})

	It("should quantize a whole window", func() {
		w, err := ref.QuantizeWindow(2, f84, []float64{0.5, 1.0, -0.5, 2.0})
		Expect(err).NotTo(HaveOccurred())
		Expect(w.At(0, 0).Raw()).To(Equal(int64(8)))
		Expect(w.At(1, 1).Raw()).To(Equal(int64(32)))
	})
})
