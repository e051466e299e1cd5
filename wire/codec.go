package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers. They are part of the wire contract and never reused.
const (
	fRequestAPI           protowire.Number = 1
	fRequestDirectPath    protowire.Number = 2
	fRequestRoutingMatrix protowire.Number = 3

	fLocationPlace          protowire.Number = 1
	fLocationAccessDuration protowire.Number = 2

	fParamsOriginMode           protowire.Number = 1
	fParamsDestinationMode      protowire.Number = 2
	fParamsWalkingSpeed         protowire.Number = 3
	fParamsMaxWalkingDuration   protowire.Number = 4
	fParamsBikeSpeed            protowire.Number = 5
	fParamsMaxBikeDuration      protowire.Number = 6
	fParamsBSSSpeed             protowire.Number = 7
	fParamsMaxBSSDuration       protowire.Number = 8
	fParamsCarSpeed             protowire.Number = 9
	fParamsMaxCarDuration       protowire.Number = 10
	fParamsCarNoParkSpeed       protowire.Number = 11
	fParamsMaxCarNoParkDuration protowire.Number = 12

	fDirectOrigin      protowire.Number = 1
	fDirectDestination protowire.Number = 2
	fDirectDatetime    protowire.Number = 3
	fDirectClockwise   protowire.Number = 4
	fDirectParams      protowire.Number = 5

	fMatrixReqOrigins      protowire.Number = 1
	fMatrixReqDestinations protowire.Number = 2
	fMatrixReqMode         protowire.Number = 3
	fMatrixReqSpeed        protowire.Number = 4
	fMatrixReqMaxDuration  protowire.Number = 5

	fResponseJourneys      protowire.Number = 1
	fResponseRoutingMatrix protowire.Number = 2
	fResponseError         protowire.Number = 3

	fErrorID      protowire.Number = 1
	fErrorMessage protowire.Number = 2

	fJourneyDuration  protowire.Number = 1
	fJourneyDeparture protowire.Number = 2
	fJourneyArrival   protowire.Number = 3
	fJourneySections  protowire.Number = 4

	fSectionID          protowire.Number = 1
	fSectionMode        protowire.Number = 2
	fSectionOrigin      protowire.Number = 3
	fSectionDestination protowire.Number = 4
	fSectionBegin       protowire.Number = 5
	fSectionEnd         protowire.Number = 6
	fSectionDuration    protowire.Number = 7
	fSectionLength      protowire.Number = 8

	fPlaceURI   protowire.Number = 1
	fPlaceName  protowire.Number = 2
	fPlaceCoord protowire.Number = 3

	fCoordLon protowire.Number = 1
	fCoordLat protowire.Number = 2

	fMatrixRows      protowire.Number = 1
	fRowElements     protowire.Number = 1
	fElementDuration protowire.Number = 1
	fElementStatus   protowire.Number = 2
)

// MarshalRequest encodes a request.
func MarshalRequest(r *Request) []byte {
	var b []byte
	b = appendVarint(b, fRequestAPI, uint64(r.API))
	if r.DirectPath != nil {
		b = appendMessage(b, fRequestDirectPath, marshalDirectPath(r.DirectPath))
	}
	if r.RoutingMatrix != nil {
		b = appendMessage(b, fRequestRoutingMatrix, marshalMatrixRequest(r.RoutingMatrix))
	}
	return b
}

// UnmarshalRequest decodes a request.
func UnmarshalRequest(b []byte) (*Request, error) {
	r := &Request{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fRequestAPI:
			v, n, err := consumeVarint(typ, b)
			r.API = API(int32(v))
			return n, err
		case fRequestDirectPath:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			r.DirectPath, err = unmarshalDirectPath(m)
			return n, err
		case fRequestRoutingMatrix:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			r.RoutingMatrix, err = unmarshalMatrixRequest(m)
			return n, err
		}
		return skip, nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return r, nil
}

// MarshalResponse encodes a response.
func MarshalResponse(r *Response) []byte {
	var b []byte
	for i := range r.Journeys {
		b = appendMessage(b, fResponseJourneys, marshalJourney(&r.Journeys[i]))
	}
	if r.RoutingMatrix != nil {
		b = appendMessage(b, fResponseRoutingMatrix, marshalMatrix(r.RoutingMatrix))
	}
	if r.Error != nil {
		var e []byte
		e = appendVarint(e, fErrorID, uint64(int64(r.Error.ID)))
		e = appendString(e, fErrorMessage, r.Error.Message)
		b = appendMessage(b, fResponseError, e)
	}
	return b
}

// UnmarshalResponse decodes a response.
func UnmarshalResponse(b []byte) (*Response, error) {
	r := &Response{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fResponseJourneys:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			j, err := unmarshalJourney(m)
			if err != nil {
				return n, err
			}
			r.Journeys = append(r.Journeys, *j)
			return n, nil
		case fResponseRoutingMatrix:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			r.RoutingMatrix, err = unmarshalMatrix(m)
			return n, err
		case fResponseError:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			r.Error, err = unmarshalError(m)
			return n, err
		}
		return skip, nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return r, nil
}

// --- request messages ---

func marshalLocation(l LocationContext) []byte {
	var b []byte
	b = appendString(b, fLocationPlace, l.Place)
	b = appendVarint(b, fLocationAccessDuration, uint64(int64(l.AccessDuration)))
	return b
}

func unmarshalLocation(b []byte) (LocationContext, error) {
	var l LocationContext
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fLocationPlace:
			v, n, err := consumeBytes(typ, b)
			l.Place = string(v)
			return n, err
		case fLocationAccessDuration:
			v, n, err := consumeVarint(typ, b)
			l.AccessDuration = int32(v)
			return n, err
		}
		return skip, nil
	})
	return l, err
}

func marshalParams(p *StreetNetworkParams) []byte {
	var b []byte
	b = appendString(b, fParamsOriginMode, p.OriginMode)
	b = appendString(b, fParamsDestinationMode, p.DestinationMode)
	b = appendDouble(b, fParamsWalkingSpeed, p.WalkingSpeed)
	b = appendVarint(b, fParamsMaxWalkingDuration, uint64(int64(p.MaxWalkingDurationToPT)))
	b = appendDouble(b, fParamsBikeSpeed, p.BikeSpeed)
	b = appendVarint(b, fParamsMaxBikeDuration, uint64(int64(p.MaxBikeDurationToPT)))
	b = appendDouble(b, fParamsBSSSpeed, p.BSSSpeed)
	b = appendVarint(b, fParamsMaxBSSDuration, uint64(int64(p.MaxBSSDurationToPT)))
	b = appendDouble(b, fParamsCarSpeed, p.CarSpeed)
	b = appendVarint(b, fParamsMaxCarDuration, uint64(int64(p.MaxCarDurationToPT)))
	b = appendDouble(b, fParamsCarNoParkSpeed, p.CarNoParkSpeed)
	b = appendVarint(b, fParamsMaxCarNoParkDuration, uint64(int64(p.MaxCarNoParkDurationToPT)))
	return b
}

func unmarshalParams(b []byte) (StreetNetworkParams, error) {
	var p StreetNetworkParams
	doubles := map[protowire.Number]*float64{
		fParamsWalkingSpeed:   &p.WalkingSpeed,
		fParamsBikeSpeed:      &p.BikeSpeed,
		fParamsBSSSpeed:       &p.BSSSpeed,
		fParamsCarSpeed:       &p.CarSpeed,
		fParamsCarNoParkSpeed: &p.CarNoParkSpeed,
	}
	ints := map[protowire.Number]*int32{
		fParamsMaxWalkingDuration:   &p.MaxWalkingDurationToPT,
		fParamsMaxBikeDuration:      &p.MaxBikeDurationToPT,
		fParamsMaxBSSDuration:       &p.MaxBSSDurationToPT,
		fParamsMaxCarDuration:       &p.MaxCarDurationToPT,
		fParamsMaxCarNoParkDuration: &p.MaxCarNoParkDurationToPT,
	}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if dst, ok := doubles[num]; ok {
			v, n, err := consumeDouble(typ, b)
			*dst = v
			return n, err
		}
		if dst, ok := ints[num]; ok {
			v, n, err := consumeVarint(typ, b)
			*dst = int32(v)
			return n, err
		}
		switch num {
		case fParamsOriginMode:
			v, n, err := consumeBytes(typ, b)
			p.OriginMode = string(v)
			return n, err
		case fParamsDestinationMode:
			v, n, err := consumeBytes(typ, b)
			p.DestinationMode = string(v)
			return n, err
		}
		return skip, nil
	})
	return p, err
}

func marshalDirectPath(d *DirectPathRequest) []byte {
	var b []byte
	b = appendMessage(b, fDirectOrigin, marshalLocation(d.Origin))
	b = appendMessage(b, fDirectDestination, marshalLocation(d.Destination))
	b = appendVarint(b, fDirectDatetime, uint64(d.Datetime))
	b = appendBool(b, fDirectClockwise, d.Clockwise)
	b = appendMessage(b, fDirectParams, marshalParams(&d.Params))
	return b
}

func unmarshalDirectPath(b []byte) (*DirectPathRequest, error) {
	d := &DirectPathRequest{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fDirectOrigin, fDirectDestination:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			l, err := unmarshalLocation(m)
			if num == fDirectOrigin {
				d.Origin = l
			} else {
				d.Destination = l
			}
			return n, err
		case fDirectDatetime:
			v, n, err := consumeVarint(typ, b)
			d.Datetime = int64(v)
			return n, err
		case fDirectClockwise:
			v, n, err := consumeVarint(typ, b)
			d.Clockwise = protowire.DecodeBool(v)
			return n, err
		case fDirectParams:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			d.Params, err = unmarshalParams(m)
			return n, err
		}
		return skip, nil
	})
	return d, err
}

func marshalMatrixRequest(m *RoutingMatrixRequest) []byte {
	var b []byte
	for _, o := range m.Origins {
		b = appendMessage(b, fMatrixReqOrigins, marshalLocation(o))
	}
	for _, d := range m.Destinations {
		b = appendMessage(b, fMatrixReqDestinations, marshalLocation(d))
	}
	b = appendString(b, fMatrixReqMode, m.Mode)
	b = appendDouble(b, fMatrixReqSpeed, m.Speed)
	b = appendVarint(b, fMatrixReqMaxDuration, uint64(int64(m.MaxDuration)))
	return b
}

func unmarshalMatrixRequest(b []byte) (*RoutingMatrixRequest, error) {
	m := &RoutingMatrixRequest{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fMatrixReqOrigins, fMatrixReqDestinations:
			raw, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			l, err := unmarshalLocation(raw)
			if num == fMatrixReqOrigins {
				m.Origins = append(m.Origins, l)
			} else {
				m.Destinations = append(m.Destinations, l)
			}
			return n, err
		case fMatrixReqMode:
			v, n, err := consumeBytes(typ, b)
			m.Mode = string(v)
			return n, err
		case fMatrixReqSpeed:
			v, n, err := consumeDouble(typ, b)
			m.Speed = v
			return n, err
		case fMatrixReqMaxDuration:
			v, n, err := consumeVarint(typ, b)
			m.MaxDuration = int32(v)
			return n, err
		}
		return skip, nil
	})
	return m, err
}

// --- response messages ---

func unmarshalError(b []byte) (*Error, error) {
	e := &Error{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fErrorID:
			v, n, err := consumeVarint(typ, b)
			e.ID = int32(v)
			return n, err
		case fErrorMessage:
			v, n, err := consumeBytes(typ, b)
			e.Message = string(v)
			return n, err
		}
		return skip, nil
	})
	return e, err
}

func marshalJourney(j *Journey) []byte {
	var b []byte
	b = appendVarint(b, fJourneyDuration, uint64(int64(j.Duration)))
	b = appendVarint(b, fJourneyDeparture, uint64(j.DepartureDateTime))
	b = appendVarint(b, fJourneyArrival, uint64(j.ArrivalDateTime))
	for i := range j.Sections {
		b = appendMessage(b, fJourneySections, marshalSection(&j.Sections[i]))
	}
	return b
}

func unmarshalJourney(b []byte) (*Journey, error) {
	j := &Journey{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fJourneyDuration:
			v, n, err := consumeVarint(typ, b)
			j.Duration = int32(v)
			return n, err
		case fJourneyDeparture:
			v, n, err := consumeVarint(typ, b)
			j.DepartureDateTime = int64(v)
			return n, err
		case fJourneyArrival:
			v, n, err := consumeVarint(typ, b)
			j.ArrivalDateTime = int64(v)
			return n, err
		case fJourneySections:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			s, err := unmarshalSection(m)
			if err != nil {
				return n, err
			}
			j.Sections = append(j.Sections, *s)
			return n, nil
		}
		return skip, nil
	})
	return j, err
}

func marshalSection(s *Section) []byte {
	var b []byte
	b = appendString(b, fSectionID, s.ID)
	b = appendString(b, fSectionMode, s.Mode)
	b = appendMessage(b, fSectionOrigin, marshalPlace(&s.Origin))
	b = appendMessage(b, fSectionDestination, marshalPlace(&s.Destination))
	b = appendVarint(b, fSectionBegin, uint64(s.BeginDateTime))
	b = appendVarint(b, fSectionEnd, uint64(s.EndDateTime))
	b = appendVarint(b, fSectionDuration, uint64(int64(s.Duration)))
	b = appendVarint(b, fSectionLength, uint64(int64(s.Length)))
	return b
}

func unmarshalSection(b []byte) (*Section, error) {
	s := &Section{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fSectionID:
			v, n, err := consumeBytes(typ, b)
			s.ID = string(v)
			return n, err
		case fSectionMode:
			v, n, err := consumeBytes(typ, b)
			s.Mode = string(v)
			return n, err
		case fSectionOrigin, fSectionDestination:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			p, err := unmarshalPlace(m)
			if num == fSectionOrigin {
				s.Origin = p
			} else {
				s.Destination = p
			}
			return n, err
		case fSectionBegin:
			v, n, err := consumeVarint(typ, b)
			s.BeginDateTime = int64(v)
			return n, err
		case fSectionEnd:
			v, n, err := consumeVarint(typ, b)
			s.EndDateTime = int64(v)
			return n, err
		case fSectionDuration:
			v, n, err := consumeVarint(typ, b)
			s.Duration = int32(v)
			return n, err
		case fSectionLength:
			v, n, err := consumeVarint(typ, b)
			s.Length = int32(v)
			return n, err
		}
		return skip, nil
	})
	return s, err
}

func marshalPlace(p *Place) []byte {
	var b []byte
	b = appendString(b, fPlaceURI, p.URI)
	b = appendString(b, fPlaceName, p.Name)
	if p.Coord != nil {
		var c []byte
		c = appendDouble(c, fCoordLon, p.Coord.Lon)
		c = appendDouble(c, fCoordLat, p.Coord.Lat)
		b = appendMessage(b, fPlaceCoord, c)
	}
	return b
}

func unmarshalPlace(b []byte) (Place, error) {
	var p Place
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fPlaceURI:
			v, n, err := consumeBytes(typ, b)
			p.URI = string(v)
			return n, err
		case fPlaceName:
			v, n, err := consumeBytes(typ, b)
			p.Name = string(v)
			return n, err
		case fPlaceCoord:
			m, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			c := &Coord{}
			err = walk(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case fCoordLon:
					v, n, err := consumeDouble(typ, b)
					c.Lon = v
					return n, err
				case fCoordLat:
					v, n, err := consumeDouble(typ, b)
					c.Lat = v
					return n, err
				}
				return skip, nil
			})
			p.Coord = c
			return n, err
		}
		return skip, nil
	})
	return p, err
}

func marshalMatrix(m *RoutingMatrix) []byte {
	var b []byte
	for _, row := range m.Rows {
		var r []byte
		for _, el := range row.Elements {
			var e []byte
			e = appendVarint(e, fElementDuration, uint64(int64(el.Duration)))
			e = appendVarint(e, fElementStatus, uint64(el.RoutingStatus))
			r = appendMessage(r, fRowElements, e)
		}
		b = appendMessage(b, fMatrixRows, r)
	}
	return b
}

func unmarshalMatrix(b []byte) (*RoutingMatrix, error) {
	m := &RoutingMatrix{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fMatrixRows {
			return skip, nil
		}
		raw, n, err := consumeBytes(typ, b)
		if err != nil {
			return n, err
		}
		var row MatrixRow
		err = walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num != fRowElements {
				return skip, nil
			}
			raw, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			var el MatrixElement
			err = walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case fElementDuration:
					v, n, err := consumeVarint(typ, b)
					el.Duration = int32(v)
					return n, err
				case fElementStatus:
					v, n, err := consumeVarint(typ, b)
					el.RoutingStatus = RoutingStatus(int32(v))
					return n, err
				}
				return skip, nil
			})
			row.Elements = append(row.Elements, el)
			return n, err
		})
		m.Rows = append(m.Rows, row)
		return n, err
	})
	return m, err
}

// --- primitives ---

// skip tells walk to discard the current field.
const skip = -1

// walk iterates over the fields of an encoded message. fn returns the number
// of bytes it consumed from the field value, or skip.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m == skip {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		b = b[m:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("unexpected wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("unexpected wire type %d", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeDouble(typ protowire.Type, b []byte) (float64, int, error) {
	if typ != protowire.Fixed64Type {
		return 0, 0, fmt.Errorf("unexpected wire type %d", typ)
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return math.Float64frombits(v), n, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendDouble(b []byte, num protowire.Number, f float64) []byte {
	if f == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(f))
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}
