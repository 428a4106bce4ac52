package modem_test

import (
	gomock "go.uber.org/mock/gomock"

	"i4.energy/across/sbdgw/modem"
)

// MockSequenceBuilder scripts request/response exchanges on a MockTransport.
// Each step expects one command write followed by one read that returns the
// whole reply frame.
type MockSequenceBuilder struct {
	transport *modem.MockTransport
	calls     []any
}

func NewMockSequence(transport *modem.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

func (b *MockSequenceBuilder) Exchange(cmd, reply string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Write([]byte(cmd)).Return(len(cmd), nil),
		b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, reply+"\r"), nil
		}),
	)
	return b
}

// APIVersionUnset answers the version query with two supported versions and
// none selected, then accepts the newest.
func (b *MockSequenceBuilder) APIVersionUnset() *MockSequenceBuilder {
	return b.
		Exchange("GET apiVersion {}\r",
			`200 apiVersion {"supported_versions":[{"major":1,"minor":0,"patch":0},{"major":1,"minor":2,"patch":0}]}`).
		Exchange("PUT apiVersion {\"active_version\": {\"major\": 1, \"minor\": 2, \"patch\": 0}}\r",
			`200 apiVersion {"active_version":{"major":1,"minor":2,"patch":0}}`)
}

func (b *MockSequenceBuilder) SIMInternal() *MockSequenceBuilder {
	return b.Exchange("GET simConfig {}\r", `200 simConfig {"interface":"internal"}`)
}

func (b *MockSequenceBuilder) OperationalActive() *MockSequenceBuilder {
	return b.Exchange("GET operationalState {}\r", `200 operationalState {"state":"active","reason":0}`)
}

func (b *MockSequenceBuilder) Close() *MockSequenceBuilder {
	b.calls = append(b.calls, b.transport.EXPECT().Close().Return(nil))
	return b
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}

// bringUpMockCalls is the exchange Begin performs against a freshly booted
// modem.
func bringUpMockCalls(transport *modem.MockTransport) []any {
	return NewMockSequence(transport).
		APIVersionUnset().
		SIMInternal().
		OperationalActive().
		Build()
}
