package guidance

import (
	"fmt"
	"strings"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/util"
)

const (
	U_TURN_UNKNOWN     = -999
	U_TURN_LEFT        = -8
	KEEP_LEFT          = -7
	TURN_SHARP_LEFT    = -3
	TURN_LEFT          = -2
	TURN_SLIGHT_LEFT   = -1
	CONTINUE_ON_STREET = 0
	TURN_SLIGHT_RIGHT  = 1
	TURN_RIGHT         = 2
	TURN_SHARP_RIGHT   = 3
	FINISH             = 4
	KEEP_RIGHT         = 7
	U_TURN_RIGHT       = 8
	START              = 101
	IGNORE             = 9999999
)

// Instruction is one turn of a walk. Distance & time cover the stretch up to the next instruction.
type Instruction struct {
	Sign           int                      `json:"sign"`
	Text           string                   `json:"text"`
	StreetName     string                   `json:"street_name"`
	Point          datastructure.Coordinate `json:"point"`
	DistanceMeters float64                  `json:"distance"`
	TimeMillis     int64                    `json:"time"`
	TurnType       string                   `json:"turn_type,omitempty"`
	Heading        float64                  `json:"heading,omitempty"` // bearing of the first step, only on START
}

func newInstruction(sign int, name string, p datastructure.Coordinate) *Instruction {
	return &Instruction{
		Sign:       sign,
		StreetName: name,
		Point:      p,
	}
}

func (instr *Instruction) finalize() {
	instr.DistanceMeters = util.RoundFloat(instr.DistanceMeters, 2)
	instr.Heading = util.RoundFloat(instr.Heading, 2)
	_, instr.TurnType = directionDescription(instr.Sign)
	instr.Text = instr.TurnDescription()
}

// TurnDescription is the text shown to the pedestrian.
func (instr *Instruction) TurnDescription() string {
	streetName := instr.StreetName
	switch instr.Sign {
	case CONTINUE_ON_STREET:
		if isEmpty(streetName) {
			return "Continue"
		}
		return fmt.Sprintf("Continue onto %s", streetName)
	case START:
		heading := instr.Heading
		if heading < 0.0 {
			heading += 360
		}
		compassDir := bearingToCompass(heading)
		if isEmpty(streetName) {
			return fmt.Sprintf("Walk %s", compassDir)
		}
		return fmt.Sprintf("Walk %s on %s", compassDir, streetName)
	case FINISH:
		return "Arrive at your destination"
	}

	dir, _ := directionDescription(instr.Sign)
	if dir == "" {
		return fmt.Sprintf("unknown %d", instr.Sign)
	}
	if isEmpty(streetName) {
		return dir
	}
	switch instr.Sign {
	case KEEP_LEFT, KEEP_RIGHT:
		return fmt.Sprintf("%s to continue on %s", dir, streetName)
	default:
		return fmt.Sprintf("%s onto %s", dir, streetName)
	}
}

func bearingToCompass(bearing float64) string {
	if bearing < 22.5 {
		return "north"
	} else if bearing < 67.5 {
		return "north east"
	} else if bearing < 112.5 {
		return "east"
	} else if bearing < 157.5 {
		return "south east"
	} else if bearing < 202.5 {
		return "south"
	} else if bearing < 247.5 {
		return "south west"
	} else if bearing < 292.5 {
		return "west"
	} else if bearing < 337.5 {
		return "north west"
	}
	return "north"
}

func directionDescription(sign int) (string, string) {
	switch sign {
	case U_TURN_UNKNOWN:
		return "Turn around", "U_TURN_UNKNOWN"
	case U_TURN_RIGHT:
		return "Turn around right", "U_TURN_RIGHT"
	case U_TURN_LEFT:
		return "Turn around left", "U_TURN_LEFT"
	case KEEP_LEFT:
		return "Keep left", "KEEP_LEFT"
	case TURN_SHARP_LEFT:
		return "Turn sharp left", "TURN_SHARP_LEFT"
	case TURN_LEFT:
		return "Turn left", "TURN_LEFT"
	case TURN_SLIGHT_LEFT:
		return "Turn slight left", "TURN_SLIGHT_LEFT"
	case CONTINUE_ON_STREET:
		return "Continue", "CONTINUE_ON_STREET"
	case TURN_SLIGHT_RIGHT:
		return "Turn slight right", "TURN_SLIGHT_RIGHT"
	case TURN_RIGHT:
		return "Turn right", "TURN_RIGHT"
	case TURN_SHARP_RIGHT:
		return "Turn sharp right", "TURN_SHARP_RIGHT"
	case KEEP_RIGHT:
		return "Keep right", "KEEP_RIGHT"
	case START:
		return "Start", "START"
	case FINISH:
		return "Arrive", "FINISH"
	default:
		return "", ""
	}
}

func isEmpty(str string) bool {
	return strings.TrimSpace(str) == ""
}
