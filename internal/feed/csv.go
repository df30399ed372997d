// Package feed reads historical tick files. The format is CSV with a
// header row and fields TYPE, TIMESTAMP_NS, SYMBOL, PRICE, SIZE,
// BID_PRICE, BID_SIZE, ASK_PRICE, ASK_SIZE; timestamps are epoch
// nanoseconds sorted ascending. Malformed records are skipped here,
// never surfaced to the scheduler.
package feed

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/event"
	"main/internal/model"
	"main/pkg/exception"
	"main/pkg/scanner"
)

const (
	fieldType = iota
	fieldTimestamp
	fieldSymbol
	fieldPrice
	fieldSize
	fieldBidPrice
	fieldBidSize
	fieldAskPrice
	fieldAskSize

	quoteFieldCount = 9
	tradeFieldCount = 5
)

// Parser is a finite iterator over one tick file.
type Parser struct {
	file    *os.File
	r       *bufio.Reader
	fields  [][]byte
	line    int
	skipped int
	eof     bool
}

// NewParser opens the file and consumes the header line.
func NewParser(path string) (*Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(exception.ErrFeedOpen, err.Error())
	}

	p := &Parser{file: f, r: bufio.NewReaderSize(f, 1<<16)}
	header, err := p.readLine()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, exception.ErrFeedMissingHeader
		}
		return nil, errors.Wrap(err, "read tick file header")
	}
	logs.Debugf("tick file header: %s", header)
	return p, nil
}

// Next returns the next well-formed market event, or
// exception.ErrFeedExhausted at end of file. Malformed records are
// logged and skipped.
func (p *Parser) Next() (event.Event, error) {
	for {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				return nil, exception.ErrFeedExhausted
			}
			return nil, errors.Wrap(err, "read tick record")
		}

		ev, ok := p.parseLine(line)
		if !ok {
			p.skipped++
			continue
		}
		return ev, nil
	}
}

// Skipped returns the number of malformed records dropped so far.
func (p *Parser) Skipped() int { return p.skipped }

// Close releases the underlying file.
func (p *Parser) Close() error {
	return p.file.Close()
}

func (p *Parser) readLine() ([]byte, error) {
	if p.eof {
		return nil, io.EOF
	}
	line, err := p.r.ReadBytes('\n')
	if err != nil {
		if err != io.EOF {
			return nil, err
		}
		p.eof = true
		if len(line) == 0 {
			return nil, io.EOF
		}
	}
	p.line++
	line = scanner.TrimSpace(line)
	if len(line) == 0 {
		return p.readLine()
	}
	return line, nil
}

func (p *Parser) parseLine(line []byte) (event.Event, bool) {
	p.fields = scanner.SplitComma(p.fields[:0], line)
	if len(p.fields) < tradeFieldCount {
		logs.Warnf("tick file line %d: too few fields, skipping", p.line)
		return nil, false
	}

	ts, ok := scanner.ParseInt(p.fields[fieldTimestamp])
	if !ok {
		logs.Warnf("tick file line %d: bad timestamp %q, skipping", p.line, p.fields[fieldTimestamp])
		return nil, false
	}
	symbol := string(scanner.TrimSpace(p.fields[fieldSymbol]))
	if symbol == "" {
		logs.Warnf("tick file line %d: empty symbol, skipping", p.line)
		return nil, false
	}

	switch string(scanner.TrimSpace(p.fields[fieldType])) {
	case "QUOTE":
		if len(p.fields) < quoteFieldCount {
			logs.Warnf("tick file line %d: quote with %d fields, skipping", p.line, len(p.fields))
			return nil, false
		}
		bidPx, ok1 := parsePrice(p.fields[fieldBidPrice])
		bidSz, ok2 := scanner.ParseUint(p.fields[fieldBidSize])
		askPx, ok3 := parsePrice(p.fields[fieldAskPrice])
		askSz, ok4 := scanner.ParseUint(p.fields[fieldAskSize])
		if !ok1 || !ok2 || !ok3 || !ok4 {
			logs.Warnf("tick file line %d: bad quote fields, skipping", p.line)
			return nil, false
		}
		return &event.Quote{
			TsExchange: model.Timestamp(ts),
			TsArrival:  model.Timestamp(ts),
			Symbol:     symbol,
			BidPrice:   bidPx,
			BidSize:    model.Quantity(bidSz),
			AskPrice:   askPx,
			AskSize:    model.Quantity(askSz),
		}, true
	case "TRADE":
		px, ok1 := parsePrice(p.fields[fieldPrice])
		sz, ok2 := scanner.ParseUint(p.fields[fieldSize])
		if !ok1 || !ok2 {
			logs.Warnf("tick file line %d: bad trade fields, skipping", p.line)
			return nil, false
		}
		return &event.Trade{
			TsExchange: model.Timestamp(ts),
			TsArrival:  model.Timestamp(ts),
			Symbol:     symbol,
			Price:      px,
			Size:       model.Quantity(sz),
		}, true
	default:
		logs.Warnf("tick file line %d: unknown type %q, skipping", p.line, p.fields[fieldType])
		return nil, false
	}
}

// parsePrice treats an empty field as zero (unused columns in quote
// rows are commonly left blank).
func parsePrice(field []byte) (model.Price, bool) {
	field = scanner.TrimSpace(field)
	if len(field) == 0 {
		return 0, true
	}
	v, err := strconv.ParseFloat(string(field), 64)
	if err != nil {
		return 0, false
	}
	return model.Price(v), true
}
