package domain

import "time"

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalExpired  ProposalStatus = "EXPIRED"
	ProposalAccepted ProposalStatus = "ACCEPTED"
	ProposalDeclined ProposalStatus = "DECLINED"
)

// DefaultProposalTTL is how long a pending proposal stays open after its last update.
const DefaultProposalTTL = 24 * time.Hour

type Proposal struct {
	ID             string
	ProposerID     string
	ReceiverID     string
	OfferedCards   []CardRef
	RequestedCards []CardRef
	MeetingPlace   string
	MeetingDate    string
	Status         ProposalStatus
	LastUpdated    time.Time
}

// IsStale reports whether a pending proposal outlived ttl at now.
func (p *Proposal) IsStale(now time.Time, ttl time.Duration) bool {
	return p.Status == ProposalPending && p.LastUpdated.Add(ttl).Before(now)
}

func (p *Proposal) Involves(username string) bool {
	return p.ProposerID == username || p.ReceiverID == username
}

func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	c := *p
	c.OfferedCards = cloneCardRefs(p.OfferedCards)
	c.RequestedCards = cloneCardRefs(p.RequestedCards)
	return &c
}
