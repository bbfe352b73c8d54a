package shared

// BaseAggregateRoot adds optimistic-lock versioning and domain event
// collection to BaseEntity. Mutators bump the version themselves;
// repositories refuse a guarded save whose version did not move past the
// stored row. Events queue up until the surrounding transaction publishes
// and clears them.
type BaseAggregateRoot struct {
	BaseEntity
	Version int `gorm:"not null;default:1"`

	events []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot creates an aggregate root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// IncrementVersion bumps the optimistic lock version
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues an event for publication
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// GetDomainEvents returns the queued events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.events
}

// ClearDomainEvents drops the queued events once they are published
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.events = nil
}
