package resp3parse_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ais-wire/resp3/resp3parse"
	"github.com/ais-wire/resp3/wire"
)

type recording struct {
	events []resp3parse.Event
}

func (r *recording) Feed(ev resp3parse.Event) error {
	cp := ev
	cp.Payload = append([]byte(nil), ev.Payload...)
	r.events = append(r.events, cp)
	return nil
}

func alwaysRecording(rec *recording) resp3parse.SinkSelector {
	return func(wire.Kind) resp3parse.Sink { return rec }
}

var _ = Describe("streaming parser", func() {
	It("parses a bare simple string (S1)", func() {
		p := resp3parse.New()
		rec := &recording{}
		res, err := p.Consume([]byte("+OK\r\n"), alwaysRecording(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.ReplyComplete))
		Expect(rec.events).To(HaveLen(1))
		Expect(rec.events[0].Kind).To(Equal(wire.SimpleString))
		Expect(rec.events[0].AggregateSize).To(Equal(1))
		Expect(rec.events[0].Depth).To(Equal(0))
		Expect(string(rec.events[0].Payload)).To(Equal("OK"))
	})

	It("parses a flat array of bulk strings (S2)", func() {
		p := resp3parse.New()
		rec := &recording{}
		in := "*3\r\n$3\r\none\r\n$3\r\ntwo\r\n$5\r\nthree\r\n"
		res, err := p.Consume([]byte(in), alwaysRecording(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.ReplyComplete))
		Expect(rec.events).To(HaveLen(4))
		Expect(rec.events[0].Kind).To(Equal(wire.Array))
		Expect(rec.events[0].AggregateSize).To(Equal(3))
		Expect(rec.events[0].Depth).To(Equal(0))
		want := []string{"one", "two", "three"}
		for i, w := range want {
			ev := rec.events[i+1]
			Expect(ev.Kind).To(Equal(wire.BlobString))
			Expect(ev.Depth).To(Equal(1))
			Expect(string(ev.Payload)).To(Equal(w))
		}
	})

	It("parses a map of string pairs (S3)", func() {
		p := resp3parse.New()
		rec := &recording{}
		in := "%2\r\n$3\r\nkey\r\n$3\r\nval\r\n$1\r\na\r\n$1\r\nb\r\n"
		res, err := p.Consume([]byte(in), alwaysRecording(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.ReplyComplete))
		Expect(rec.events).To(HaveLen(5))
		Expect(rec.events[0].Kind).To(Equal(wire.Map))
		Expect(rec.events[0].AggregateSize).To(Equal(2))
		for _, ev := range rec.events[1:] {
			Expect(ev.Depth).To(Equal(1))
		}
	})

	It("yields identical events whether fed whole or in slices (S4)", func() {
		full := "$10\r\n0123456789\r\n"
		p1 := resp3parse.New()
		rec1 := &recording{}
		res1, err1 := p1.Consume([]byte(full), alwaysRecording(rec1))
		Expect(err1).NotTo(HaveOccurred())
		Expect(res1).To(Equal(resp3parse.ReplyComplete))

		p2 := resp3parse.New()
		rec2 := &recording{}
		res, err := p2.Consume([]byte(full[:6]), alwaysRecording(rec2))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.NeedsMore))
		res, err = p2.Consume([]byte(full[6:]), alwaysRecording(rec2))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.ReplyComplete))

		Expect(rec2.events).To(Equal(rec1.events))
	})

	It("handles streamed strings terminated by a zero chunk", func() {
		p := resp3parse.New()
		rec := &recording{}
		in := "$?\r\n;4\r\nHell\r\n;1\r\no\r\n;0\r\n"
		res, err := p.Consume([]byte(in), alwaysRecording(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.ReplyComplete))
		Expect(rec.events).To(HaveLen(1))
		Expect(rec.events[0].Kind).To(Equal(wire.StreamedStringPart))
		Expect(string(rec.events[0].Payload)).To(Equal("Hello"))
	})

	It("strips the verbatim string encoding prefix", func() {
		p := resp3parse.New()
		rec := &recording{}
		in := "=15\r\ntxt:Some string\r\n"
		res, err := p.Consume([]byte(in), alwaysRecording(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.ReplyComplete))
		Expect(rec.events[0].VerbatimEncoding).To(Equal("txt"))
		Expect(string(rec.events[0].Payload)).To(Equal("Some string"))
	})

	It("sets Err on simple and blob error replies", func() {
		p := resp3parse.New()
		rec := &recording{}
		res, err := p.Consume([]byte("-ERR bad thing\r\n"), alwaysRecording(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.ReplyComplete))
		Expect(rec.events[0].Err).To(HaveOccurred())
	})

	It("treats a leading attribute as transparent and exposes it separately", func() {
		p := resp3parse.New()
		rec := &recording{}
		in := "|1\r\n$8\r\nttl-secs\r\n:10\r\n+OK\r\n"
		res, err := p.Consume([]byte(in), alwaysRecording(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.ReplyComplete))
		Expect(rec.events).To(HaveLen(1))
		Expect(rec.events[0].Kind).To(Equal(wire.SimpleString))
		Expect(p.LastAttributes()).To(HaveLen(3)) // header + key + value
		Expect(p.LastAttributes()[0].Kind).To(Equal(wire.Attribute))
	})

	It("rejects an unknown discriminant byte with a protocol error", func() {
		p := resp3parse.New()
		rec := &recording{}
		_, err := p.Consume([]byte("@nope\r\n"), alwaysRecording(rec))
		Expect(err).To(HaveOccurred())
	})

	It("captures but does not abort on a sink error, keeping byte alignment", func() {
		p := resp3parse.New()
		failing := resp3parse.SinkFunc(func(resp3parse.Event) error { return errors.New("adapter rejected event") })
		sel := func(wire.Kind) resp3parse.Sink { return failing }
		res, err := p.Consume([]byte("*2\r\n+one\r\n+two\r\n"), sel)
		Expect(res).To(Equal(resp3parse.ReplyComplete))
		Expect(err).To(HaveOccurred())

		// the connection should be byte-aligned for the next reply
		rec := &recording{}
		res, err = p.Consume([]byte("+PONG\r\n"), alwaysRecording(rec))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(resp3parse.ReplyComplete))
		Expect(string(rec.events[0].Payload)).To(Equal("PONG"))
	})
})
