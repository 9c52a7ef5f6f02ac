package guidance

import (
	"errors"
	"iter"
	"math"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
)

var ErrEmptyPath = errors.New("path is empty")

type StreetGraph interface {
	Node(id int32) datastructure.StreetNode
	EdgesAround(node int32, reverse bool) iter.Seq[datastructure.StreetEdge]
}

// Step is one street edge of a walk, oriented in walking direction.
type Step struct {
	From int32
	To   int32
	Name string
	// from node first, to node last
	Points     []datastructure.Coordinate
	DistMeters float64
	TimeMillis int64
}

type InstructionsFromSteps struct {
	graph                 StreetGraph
	ways                  []*Instruction
	prevStep              *Step
	prevOrientation       float64 // bearing (radian) segmen terakhir prevStep
	doublePrevOrientation float64 // prevOrientation waktu instruction sebelumnya dibuat
	hasDoublePrev         bool
	doublePrevStreetName  string
	prevInstruction       *Instruction
}

func NewInstructionsFromSteps(graph StreetGraph) *InstructionsFromSteps {
	return &InstructionsFromSteps{
		graph: graph,
		ways:  make([]*Instruction, 0),
	}
}

// Instructions turns the steps of one walk into turn by turn instructions, START first & FINISH last.
func (ifs *InstructionsFromSteps) Instructions(steps []Step) ([]Instruction, error) {
	ifs.ways = ifs.ways[:0]
	ifs.prevStep = nil
	ifs.prevInstruction = nil
	ifs.hasDoublePrev = false

	added := 0
	for i := range steps {
		if len(steps[i].Points) < 2 {
			continue
		}
		ifs.addInstructionFromStep(&steps[i])
		added++
	}
	if added == 0 {
		return nil, ErrEmptyPath
	}
	ifs.finish()

	instructions := make([]Instruction, 0, len(ifs.ways))
	for _, w := range ifs.ways {
		w.finalize()
		instructions = append(instructions, *w)
	}
	return instructions, nil
}

func (ifs *InstructionsFromSteps) addInstructionFromStep(step *Step) {
	start := step.Points[0]
	next := step.Points[1]

	if ifs.prevInstruction == nil {
		// start point dari walk
		ifs.prevInstruction = newInstruction(START, step.Name, start)
		ifs.prevInstruction.Heading = calcOrientation(start.Lat, start.Lon, next.Lat, next.Lon) * (180 / math.Pi)
		ifs.ways = append(ifs.ways, ifs.prevInstruction)
	} else {
		sign := ifs.turnSign(step)
		if sign != IGNORE {
			if isUTurn, uTurnType := ifs.checkUTurn(sign, step); isUTurn {
				// belokan sebelumnya + belokan sekarang = putar balik
				ifs.prevInstruction.Sign = uTurnType
				ifs.prevInstruction.StreetName = step.Name
			} else {
				ifs.doublePrevOrientation = ifs.prevOrientation
				ifs.hasDoublePrev = true
				ifs.doublePrevStreetName = ifs.prevStep.Name
				ifs.prevInstruction = newInstruction(sign, step.Name, start)
				ifs.ways = append(ifs.ways, ifs.prevInstruction)
			}
		}
	}

	ifs.prevInstruction.DistanceMeters += step.DistMeters
	ifs.prevInstruction.TimeMillis += step.TimeMillis

	last, beforeLast := step.Points[len(step.Points)-1], step.Points[len(step.Points)-2]
	ifs.prevOrientation = calcOrientation(beforeLast.Lat, beforeLast.Lon, last.Lat, last.Lon)
	ifs.prevStep = step
}

/*
turnSign. turn sign antara prevStep & step berdasarkan selisih bearing. Misalkan:

prevNode----prevStep----baseNode
							|
							|
						  step
							|
							|
						 adjNode
*/ // nolint: gofmt
func (ifs *InstructionsFromSteps) turnSign(step *Step) int {
	base, next := step.Points[0], step.Points[1]
	sign := getTurnDirection(base.Lat, base.Lon, next.Lat, next.Lon, ifs.prevOrientation)

	alternativeTurnsCount, alternatives := ifs.alternativeTurns(step.From, step.To, ifs.prevStep.From)
	if alternativeTurnsCount == 1 {
		if abs(sign) > 1 {
			return sign
		}
		return IGNORE
	}

	prevStreetName := ifs.prevStep.Name
	if abs(sign) > 1 {
		if isSameName(step.Name, prevStreetName) {
			return IGNORE
		}
		return sign
	}

	delta := calculateOrientationDelta(base.Lat, base.Lon, next.Lat, next.Lon, ifs.prevOrientation)
	if other, ok := ifs.otherContinueEdge(base.Lat, base.Lon, ifs.prevOrientation, alternatives); ok &&
		!isSameName(step.Name, prevStreetName) {
		/*
			dari baseNode ada 2 jalan yang arahnya sama sama lurus/sedikit belok:

					-----step---------
			baseNode
					-----other--------
		*/ // nolint: gofmt
		lat, lon := ifs.firstPointAfter(other)
		otherDelta := calculateOrientationDelta(base.Lat, base.Lon, lat, lon, ifs.prevOrientation)
		if delta > otherDelta {
			return KEEP_RIGHT
		}
		return KEEP_LEFT
	}

	if math.Abs(delta)*(180/math.Pi) > 34 || isLeavingCurrentStreet(prevStreetName, step.Name) {
		return sign
	}
	return IGNORE
}

func isLeavingCurrentStreet(prevStreetName, currentStreetName string) bool {
	if isEmpty(currentStreetName) || isSameName(prevStreetName, currentStreetName) {
		return false
	}
	return true
}

/*
checkUTurn. cek apakah step putar balik. Misalkan:

A --doublePrev--> B
				  |
				  |
				prev
				  |
				  |
D <----step------ C

dari A->B belok kanan, dari B->C belok kanan, & delta bearing antara A->B dan C->D mendekati 180 derajat, dianggap U-turn
*/ // nolint: gofmt
func (ifs *InstructionsFromSteps) checkUTurn(sign int, step *Step) (bool, int) {
	prevSign := ifs.prevInstruction.Sign
	if !ifs.hasDoublePrev || (sign > 0) != (prevSign > 0) || !isTurn(sign) || !isTurn(prevSign) ||
		!isSameName(ifs.doublePrevStreetName, step.Name) {
		return false, U_TURN_UNKNOWN
	}
	base, next := step.Points[0], step.Points[1]
	currentOrientation := calcOrientation(base.Lat, base.Lon, next.Lat, next.Lon)
	diffAngle := math.Abs(ifs.doublePrevOrientation-currentOrientation) * (180 / math.Pi)
	if diffAngle > 155 && diffAngle < 205 {
		if sign < 0 {
			return true, U_TURN_LEFT
		}
		return true, U_TURN_RIGHT
	}
	return false, U_TURN_UNKNOWN
}

func isTurn(sign int) bool {
	a := abs(sign)
	return a == TURN_SLIGHT_RIGHT || a == TURN_RIGHT || a == TURN_SHARP_RIGHT
}

func (ifs *InstructionsFromSteps) finish() {
	last := ifs.prevStep.Points[len(ifs.prevStep.Points)-1]
	ifs.ways = append(ifs.ways, newInstruction(FINISH, ifs.prevStep.Name, last))
}
