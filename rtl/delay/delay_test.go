package delay_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cnnsim/rtl/delay"
)

var _ = Describe("Line", func() {
	It("should reject non-positive depth", func() {
		_, err := delay.New(0)
		Expect(err).To(HaveOccurred())
		_, err = delay.New(-1)
		Expect(err).To(HaveOccurred())
	})

	It("should report its depth", func() {
		line, err := delay.New(4)
		Expect(err).NotTo(HaveOccurred())
		Expect(line.Depth()).To(Equal(4))
	})

	It("should move a bit into the final slot after depth edges", func() {
		line, _ := delay.New(3)

		Expect(line.Tick(true)).To(BeFalse())
		Expect(line.Tick(false)).To(BeFalse())
		Expect(line.Tick(false)).To(BeTrue())
		Expect(line.Tick(false)).To(BeFalse())
	})

	It("should pass every edge through a depth-1 line", func() {
		line, _ := delay.New(1)

		Expect(line.Tick(true)).To(BeTrue())
		Expect(line.Tick(false)).To(BeFalse())
		Expect(line.Tick(true)).To(BeTrue())
	})

	It("should shift a dense pattern without loss", func() {
		line, _ := delay.New(2)
		pattern := []bool{true, true, false, true, false, false, true}

		var got []bool
		for _, b := range pattern {
			got = append(got, line.Tick(b))
		}
		got = append(got, line.Tick(false))

		// First depth-1 outputs are the empty line draining.
		Expect(got[1:]).To(Equal(pattern))
	})

	It("should peek without advancing", func() {
		line, _ := delay.New(2)
		line.Tick(true)
		Expect(line.Peek()).To(BeFalse())
		line.Tick(false)
		Expect(line.Peek()).To(BeTrue())
		Expect(line.Peek()).To(BeTrue())
	})
})
