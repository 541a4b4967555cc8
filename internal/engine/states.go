package engine

// Conversation states are a tagged union: each dialogue phase carries only
// the fields that are legal for it. The absence of an entry in the state map
// is the idle state.
type userState interface {
	conversationState()
}

type awaitingCheckInLocation struct{}

type awaitingCheckOutLocation struct{}

type awaitingLeaveStart struct{}

type awaitingLeaveEnd struct {
	startDate string
}

type awaitingLeaveReason struct {
	startDate string
	endDate   string
}

type awaitingZoneLocation struct{}

type awaitingZoneName struct {
	lat float64
	lon float64
}

type awaitingZoneRename struct {
	zoneName string
}

func (awaitingCheckInLocation) conversationState()  {}
func (awaitingCheckOutLocation) conversationState() {}
func (awaitingLeaveStart) conversationState()       {}
func (awaitingLeaveEnd) conversationState()         {}
func (awaitingLeaveReason) conversationState()      {}
func (awaitingZoneLocation) conversationState()     {}
func (awaitingZoneName) conversationState()         {}
func (awaitingZoneRename) conversationState()       {}
