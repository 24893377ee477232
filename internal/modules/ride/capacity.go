package ride

// Capacity is the total seat count of a vehicle class, host seat included.
func Capacity(v Vehicle) int {
	switch v {
	case VehicleAuto:
		return 8
	case VehicleCab:
		return 6
	default:
		return 0
	}
}

// Occupied counts the host plus every passenger.
func (r *Ride) Occupied() int {
	return 1 + len(r.Passengers)
}

// SeatsLeft never goes below zero, even for rosters written outside the engine.
func (r *Ride) SeatsLeft() int {
	return max(Capacity(r.Vehicle)-r.Occupied(), 0)
}

func (r *Ride) IsFull() bool {
	return r.SeatsLeft() <= 0
}
