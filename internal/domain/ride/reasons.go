package ride

// Suggested cancellation reasons shown to each party. The stored reason is
// free text and is not checked against these lists.
var (
	PassengerCancelReasons = []string{
		"Changed my mind",
		"Driver taking too long",
		"Fare is too high",
		"Driver asked to cancel",
		"Found another ride",
	}

	DriverCancelReasons = []string{
		"Vehicle problem",
		"Unable to find passenger",
		"Passenger not responding",
		"Area is unsafe",
		"Accident / Emergency",
	}
)
