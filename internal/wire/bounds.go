package wire

import "errors"

// Limits applied to incoming responses from upstream servers, to bound
// resource usage when parsing untrusted wire data (grounded on the
// section-count limits used for incoming requests in the teacher corpus;
// adapted here to the stub resolver's response-side parsing path).
const (
	MaxIncomingDNSMessageSize = 65535 // Maximum size of an incoming DNS message (TCP framing limit)
	MaxQuestions              = 4     // Maximum questions accepted in a response's echoed question section
	MaxRRPerSection           = 256   // Maximum resource records per section
	MaxTotalRR                = 512   // Maximum total resource records across all sections
)

// ParseResponseBounded parses a DNS response with resource-exhaustion bounds
// checking. Unlike ParsePacket, it additionally rejects responses whose
// section counts exceed sane limits before the allocation they'd trigger.
func ParseResponseBounded(msg []byte) (Packet, error) {
	if len(msg) > MaxIncomingDNSMessageSize {
		return Packet{}, errors.New("wire: response too large")
	}
	if len(msg) < HeaderSize {
		return Packet{}, errors.New("wire: response shorter than a DNS header")
	}
	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		return Packet{}, err
	}
	if err := validateSectionCounts(h); err != nil {
		return Packet{}, err
	}
	return ParsePacket(msg)
}

func validateSectionCounts(h Header) error {
	if int(h.QDCount) > MaxQuestions {
		return errors.New("wire: too many questions")
	}
	an, ns, ar := int(h.ANCount), int(h.NSCount), int(h.ARCount)
	if an > MaxRRPerSection || ns > MaxRRPerSection || ar > MaxRRPerSection {
		return errors.New("wire: too many resource records in a section")
	}
	if an+ns+ar > MaxTotalRR {
		return errors.New("wire: too many total resource records")
	}
	return nil
}
